// Package main hosts the alphaplay CLI.
//
// render plays a stacked alpha source through the playback controller and
// writes each presented frame as PNG. probe inspects a source and
// composites its first frame. config shows, validates or creates the TOML
// configuration.
package main
