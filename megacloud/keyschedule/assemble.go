package keyschedule

import (
	"fmt"
	"strings"

	"github.com/shahradelahi/aniwatch/errs"
)

// Assemble carves the secret out of payload following schedule and returns it
// together with the residual ciphertext. Reads outside the payload are clamped.
func Assemble(payload string, schedule Schedule) (secret string, residual string) {
	chars := []rune(payload)
	removed := make([]bool, len(chars))

	var sb strings.Builder
	cursor := 0
	for _, p := range schedule {
		start := clamp(cursor+p.Skip, 0, len(chars))
		end := clamp(start+p.Take, start, len(chars))
		for i := start; i < end; i++ {
			sb.WriteRune(chars[i])
			removed[i] = true
		}
		cursor += p.Take
	}

	var rest strings.Builder
	rest.Grow(len(payload))
	for i, c := range chars {
		if !removed[i] {
			rest.WriteRune(c)
		}
	}
	return sb.String(), rest.String()
}

// Embed is the inverse of Assemble: it hides secret inside residual so that
// Assemble(Embed(secret, residual, schedule), schedule) yields both back.
// The schedule must take exactly len(secret) characters over disjoint ranges.
func Embed(secret, residual string, schedule Schedule) (string, error) {
	sec := []rune(secret)
	res := []rune(residual)
	if schedule.Total() != len(sec) {
		return "", fmt.Errorf("%w: schedule takes %d characters, secret has %d",
			errs.ErrInvalidInput, schedule.Total(), len(sec))
	}

	total := len(sec) + len(res)
	slot := make([]int, total)
	for i := range slot {
		slot[i] = -1
	}

	k := 0
	cursor := 0
	for n, p := range schedule {
		start := cursor + p.Skip
		end := start + p.Take
		if p.Take < 0 || start < 0 || end > total {
			return "", fmt.Errorf("%w: pair %d [%d,%d) out of range", errs.ErrInvalidInput, n, start, end)
		}
		for i := start; i < end; i++ {
			if slot[i] >= 0 {
				return "", fmt.Errorf("%w: pair %d overlaps position %d", errs.ErrInvalidInput, n, i)
			}
			slot[i] = k
			k++
		}
		cursor += p.Take
	}

	out := make([]rune, total)
	j := 0
	for i := range out {
		if slot[i] >= 0 {
			out[i] = sec[slot[i]]
			continue
		}
		out[i] = res[j]
		j++
	}
	return string(out), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
