// Package config loads connection and device definitions from YAML.
package config
