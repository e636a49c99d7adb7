/*
Package megacloud extracts playable sources from megacloud embed pages.

An extraction fetches the getSources manifest for the embed's video id. A
plaintext manifest is returned as is. An encrypted one goes through the full
pipeline:

	fetched -> script_loaded -> schedule_ready -> secret_ready
	        -> key_ready -> decrypted -> parsed

The player script is scanned for the key schedule (keyschedule), the schedule
carves the passphrase out of the payload, the passphrase and the payload salt
derive an AES key (cipher) and the decrypted text is parsed into sources
(manifest).

Any failure ends in the failed state and is returned as an *Error carrying the
stage and an error code. Extract never returns sources together with an error.

	x := megacloud.New().WithLogger(l)
	res, err := x.Extract(ctx, "https://megacloud.tv/embed-2/e-1/AbCdEf123?k=1")
	if megacloud.IsSchemaMismatch(err) {
		// the player script changed; the scanner needs updating
	}

Nothing is cached between calls and there is no retry inside Extract.
*/
package megacloud
