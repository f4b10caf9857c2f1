// Package marketd owns the zonemarketd runtime: it loads the price
// catalog, trader zones and trader listings from disk, pumps the
// periodic network serialization tick, and serves the admin HTTP
// surface for stock inspection and mutation.
package marketd
