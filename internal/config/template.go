package config

func DefaultTemplate() string {
	return `# sync-tap configuration
#
# Precedence: flags > environment variables > config file > defaults
# Environment prefix: SYNC_TAP_
# Relative paths are resolved against the directory holding this file.

# GitHub repository whose releases are mirrored (owner/name)
repo: errata-ai/vale-ls

# Formula file base name: <formula_name>.rb, <formula_name>@M.m.rb, <formula_name>@M.m.p.rb
formula_name: vale-ls

# Ruby class of the latest formula. Derived from formula_name when empty
# (vale-ls -> ValeLs); versioned formulas append ATMm / ATMmp.
class_name: ""

# Where formula files are written
formula_dir: Formula

# Formula template with $name / ${name} placeholders
template: scripts/formula.rb.tmpl

# Accept draft and prerelease GitHub releases
include_prereleases: false

# Delete versioned formulas that no longer match a selected release
prune: false

# Report what would change without touching the formula directory
dry_run: false

# Enable debug logging
debug: false

# Only mirror versions matching this range, e.g. ">= 0.2"
constraint: ""

# Parallel checksum downloads per run
concurrency: 4

# Release asset filename per platform. Omitted platforms use
# <formula_name>-<rust target triple>.zip
# assets:
#   macos_arm: vale-ls-aarch64-apple-darwin.zip
#   macos_x86: vale-ls-x86_64-apple-darwin.zip
#   linux_arm: vale-ls-aarch64-unknown-linux-gnu.zip
#   linux_x86: vale-ls-x86_64-unknown-linux-gnu.zip
`
}
