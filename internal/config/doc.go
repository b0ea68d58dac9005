// SPDX-License-Identifier: MPL-2.0

// Package config handles distrobox-boost settings and directory resolution.
//
// Settings are loaded with Viper from an optional CUE file,
// $XDG_CONFIG_HOME/distrobox-boost/config.cue by default, validated against
// the embedded config_schema.cue, and can be overridden through
// DISTROBOX_BOOST_* environment variables.
//
// Dirs resolves where environment configurations and build caches live.
package config
