// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package apperr classifies errors so every layer can decide on a kind
instead of a concrete type.

	err := apperr.Wrap(dbErr, apperr.Transient, "remote.GetRoom")
	if apperr.Is(err, apperr.Transient) {
		// serve from the local cache
	}

KindOf walks the chain with errors.As. A nil error has no kind and any
unclassified error is Unknown. HTTPStatus maps a kind to its response code.
*/
package apperr
