// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package namegen builds human-friendly default topic names from fixed word
// lists. The lifecycle manager takes Generator.Random as its topic source when
// a caller leaves the topic blank.
package namegen
