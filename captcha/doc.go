// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package captcha verifies Cloudflare Turnstile tokens.

Room creation and first joins are the two unauthenticated write paths,
so they carry a Turnstile token that the server verifies against the
siteverify endpoint:

	verifier := captcha.NewTurnstile(secret)
	ok, err := verifier.Verify(token, clientIP)

With no secret configured the Disabled verifier accepts everything,
which is the dev and test mode.
*/
package captcha
