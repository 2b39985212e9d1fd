/*
Package config loads the hub's YAML configuration file.

Every field has a default, so the hub runs without a file at all; the file
overrides only what it names. CLI flags override the file.
*/
package config
