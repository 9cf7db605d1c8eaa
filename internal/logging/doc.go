// Package logging provides the leveled logger used across reel-clipper.
//
// Levels, lowest to highest: DEBUG, INFO, WARN, ERROR. FATAL logs and exits.
//
// The level comes from DEBUG=true or LOG_LEVEL on first use and can be
// replaced at runtime with SetLevel.
package logging
