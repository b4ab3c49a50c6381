// internal/config/model.go
//
// Typed configuration model for Formgate.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/formgate.yaml`                      – primary static file,
//   • `FORMGATE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client during boot, so by the time the gateway serves
// traffic the model holds only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Upstream section
//

// Upstream names the backend every canonical request is forwarded to.
//
// BaseURL carries scheme, host, and optional path prefix; form definitions
// contribute the per-form path.  AuthToken, when set, is sent as an
// Authorization bearer on every exchange and may be a `vault:` reference.
type Upstream struct {
	BaseURL   string        `koanf:"base_url" validate:"required,url"`
	Timeout   time.Duration `koanf:"timeout"`
	AuthToken string        `koanf:"auth_token"`
}

//
// Database section
//

// Database configures the submission journal.  The journal is optional;
// with Enabled false the gateway runs stateless and DSN may stay empty.
type Database struct {
	Enabled bool   `koanf:"enabled"`
	DSN     string `koanf:"dsn" validate:"required_if=Enabled true"`
}

//
// Forms section
//

// Forms locates the YAML form definitions.
type Forms struct {
	Dir string `koanf:"dir" validate:"required"`
}

//
// Security section
//

// Security carries the derivation pepper for hashed fields.  Usually a
// `vault:` reference; required only when a form declares a derive step,
// which the boot path checks after the registry walk.
type Security struct {
	HashPepper string `koanf:"hash_pepper"`
}

//
// GeoIP section
//

// GeoIP points at an optional MaxMind database for submission journaling.
// An empty path disables geo lookups; submissions journal with empty geo.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or FORMGATE_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // FORMGATE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Upstream Upstream `koanf:"upstream"`
	Database Database `koanf:"database"`
	Forms    Forms    `koanf:"forms"`
	Security Security `koanf:"security"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
