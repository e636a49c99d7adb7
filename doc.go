// Package aniwatch resolves hianime episodes into playable megacloud sources.
//
// Features:
//   - Episode server listing and embed resolution through the site's ajax API
//   - Megacloud manifest decryption with a player script key schedule
//   - Optional constant-expression evaluation and a pluggable schedule solver
//   - Subtitle track download with the playback headers
//
//	s := aniwatch.New().WithClientConfig(client.Config{Retries: 3})
//	src, err := s.GetEpisodeSources(ctx, "steinsgate-3?ep=230", "hd-1", episode.CategorySub)
package aniwatch
