// Package config manages the deployit configuration file.
//
// It handles:
//   - Defaults for the git remote, branch and log depth
//   - Tool command lines (artisan, composer, npm)
//   - Watch rules and extra command steps
//   - GitHub deployment notification and run history settings
package config
