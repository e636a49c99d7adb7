package megacloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shahradelahi/aniwatch/client"
	"github.com/shahradelahi/aniwatch/errs"
	"github.com/shahradelahi/aniwatch/internal/logger"
	"github.com/shahradelahi/aniwatch/megacloud/cipher"
	"github.com/shahradelahi/aniwatch/megacloud/keyschedule"
	"github.com/shahradelahi/aniwatch/megacloud/manifest"
	"github.com/shahradelahi/aniwatch/megacloud/solver"
	"github.com/shahradelahi/aniwatch/types"
)

// State is a step of the extraction state machine.
type State string

const (
	StateFetched       State = "fetched"
	StateScriptLoaded  State = "script_loaded"
	StateScheduleReady State = "schedule_ready"
	StateSecretReady   State = "secret_ready"
	StateKeyReady      State = "key_ready"
	StateDecrypted     State = "decrypted"
	StateParsed        State = "parsed"
	StateFailed        State = "failed"
)

// Transition is reported to the hook every time an extraction changes state.
type Transition struct {
	ExtractionID string
	State        State
	// Err is set when State is StateFailed.
	Err error
}

// Extractor turns a megacloud embed URL into playable sources.
//
// Create it with New and configure it with the chainable setters before use.
// Extract keeps all intermediate values local and is safe to call concurrently.
type Extractor struct {
	fetcher    Fetcher
	scanner    *keyschedule.Scanner
	solver     solver.Solver
	solverMode solver.Mode
	directKey  *cipher.DirectKey
	logger     *logger.Logger
	hook       func(Transition)
	now        func() time.Time
}

// New creates an Extractor using the production endpoints and client.New.
func New() *Extractor {
	return &Extractor{
		fetcher: NewHTTPFetcher(client.New(), DefaultEndpoints()),
		scanner: keyschedule.NewScanner(),
		logger:  logger.Nop(),
		now:     time.Now,
	}
}

// WithFetcher replaces the network layer.
func (e *Extractor) WithFetcher(f Fetcher) *Extractor {
	if f != nil {
		e.fetcher = f
	}
	return e
}

// WithClient fetches through c against endpoints.
func (e *Extractor) WithClient(c *client.Client, endpoints Endpoints) *Extractor {
	e.fetcher = NewHTTPFetcher(c, endpoints)
	return e
}

// WithScanner sets the key schedule scanner.
func (e *Extractor) WithScanner(s *keyschedule.Scanner) *Extractor {
	if s != nil {
		e.scanner = s
	}
	return e
}

// WithSolver configures the optional schedule solver. A nil solver disables it.
func (e *Extractor) WithSolver(mode solver.Mode, s solver.Solver) *Extractor {
	e.solver = s
	e.solverMode = mode
	if s == nil {
		e.solverMode = solver.Off
	}
	return e
}

// WithDirectKey decrypts with a known key and iv instead of recovering a
// passphrase from the player script. The script is not fetched.
func (e *Extractor) WithDirectKey(key, iv []byte) *Extractor {
	e.directKey = &cipher.DirectKey{Key: key, IV: iv}
	return e
}

// WithLogger routes stage logs to l.
func (e *Extractor) WithLogger(l *logger.Logger) *Extractor {
	if l != nil {
		e.logger = l
	}
	return e
}

// WithTransitionHook registers f to observe state changes. f may be called
// from concurrent extractions.
func (e *Extractor) WithTransitionHook(f func(Transition)) *Extractor {
	e.hook = f
	return e
}

// WithClock sets the clock used for the script cache-busting timestamp.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	if now != nil {
		e.now = now
	}
	return e
}

// run holds the per-call state of one extraction.
type run struct {
	e   *Extractor
	id  string
	log *logger.ComponentLogger
}

// logFor returns a logger for component carrying the extraction id.
func (r *run) logFor(component logger.Component) *logger.ComponentLogger {
	return r.e.logger.WithComponent(component).With(map[string]interface{}{"extraction_id": r.id})
}

func stateComponent(state State) logger.Component {
	switch state {
	case StateScheduleReady, StateSecretReady:
		return logger.ComponentScanner
	case StateKeyReady, StateDecrypted:
		return logger.ComponentCipher
	default:
		return logger.ComponentExtractor
	}
}

func (r *run) enter(state State, fields map[string]interface{}) {
	f := map[string]interface{}{"state": string(state)}
	for k, v := range fields {
		f[k] = v
	}
	r.logFor(stateComponent(state)).Debug("state transition", f)
	if r.e.hook != nil {
		r.e.hook(Transition{ExtractionID: r.id, State: state})
	}
}

func (r *run) fail(stage Stage, err error) *Error {
	xerr := NewError(stage, err)
	r.log.Warn("extraction failed", map[string]interface{}{
		"stage": string(stage),
		"code":  xerr.Code,
	})
	if r.e.hook != nil {
		r.e.hook(Transition{ExtractionID: r.id, State: StateFailed, Err: xerr})
	}
	return xerr
}

// Extract fetches the manifest for embedURL and, when encrypted, recovers the
// passphrase from the player script and decrypts it. Every failure is an
// *Error naming the failing stage; no partial result is returned.
func (e *Extractor) Extract(ctx context.Context, embedURL string) (types.ExtractionResult, error) {
	r := &run{e: e, id: uuid.NewString()}
	r.log = r.logFor(logger.ComponentExtractor)

	embed, videoID, err := ParseEmbedURL(embedURL)
	if err != nil {
		return types.ExtractionResult{}, r.fail(StageInput, err)
	}

	body, err := e.fetcher.FetchManifest(ctx, videoID, embed)
	if err != nil {
		return types.ExtractionResult{}, r.fail(StageManifest, err)
	}
	raw, err := manifest.DecodeRaw(body)
	if err != nil {
		return types.ExtractionResult{}, r.fail(StageManifest, err)
	}
	r.enter(StateFetched, map[string]interface{}{
		"encrypted": raw.Encrypted,
		"tracks":    len(raw.Tracks),
	})

	if raw.Plaintext() {
		r.enter(StateParsed, map[string]interface{}{"sources": len(raw.Plain)})
		return raw.Result(raw.Plain), nil
	}

	text, err := r.decrypt(ctx, raw.Ciphertext)
	if err != nil {
		return types.ExtractionResult{}, err
	}

	sources, err := manifest.Parse(text)
	if err != nil {
		return types.ExtractionResult{}, r.fail(StageParse, err)
	}
	r.enter(StateParsed, map[string]interface{}{"sources": len(sources)})
	return raw.Result(sources), nil
}

func (r *run) decrypt(ctx context.Context, payload string) (string, error) {
	var mode cipher.Mode
	residual := payload

	if dk := r.e.directKey; dk != nil {
		mode = *dk
	} else {
		script, err := r.e.fetcher.FetchScript(ctx, r.e.now().UnixMilli())
		if err != nil {
			return "", r.fail(StageScript, err)
		}
		r.enter(StateScriptLoaded, map[string]interface{}{"script_length": len(script)})

		schedule, err := r.schedule(ctx, script, len(payload))
		if err != nil {
			return "", r.fail(StageSchedule, err)
		}
		r.enter(StateScheduleReady, map[string]interface{}{"pairs": len(schedule)})

		var secret string
		secret, residual = keyschedule.Assemble(payload, schedule)
		r.enter(StateSecretReady, map[string]interface{}{
			"secret_length":   len(secret),
			"residual_length": len(residual),
		})
		mode = cipher.Passphrase{Secret: secret}
	}

	material, body, err := cipher.Derive(mode, residual)
	if err != nil {
		return "", r.fail(StageDerive, err)
	}
	r.enter(StateKeyReady, map[string]interface{}{"ciphertext_length": len(body)})

	text, err := cipher.Decrypt(body, material)
	if err != nil {
		return "", r.fail(StageDecrypt, err)
	}
	r.enter(StateDecrypted, map[string]interface{}{"plaintext_length": len(text)})
	return text, nil
}

// schedule obtains the key schedule from the scanner, the solver or both,
// depending on the solver mode.
func (r *run) schedule(ctx context.Context, script string, payloadLen int) (keyschedule.Schedule, error) {
	if r.e.solverMode == solver.Force {
		return r.solve(ctx, script, payloadLen)
	}
	schedule, err := r.e.scanner.Scan(script)
	if err != nil && r.e.solverMode == solver.Auto && errors.Is(err, errs.ErrSchemaMismatch) {
		r.log.Info("scanner found no schedule, trying solver")
		return r.solve(ctx, script, payloadLen)
	}
	return schedule, err
}

func (r *run) solve(ctx context.Context, script string, payloadLen int) (keyschedule.Schedule, error) {
	log := r.logFor(logger.ComponentSolver)
	out, err := r.e.solver.Solve(ctx, solver.Input{Script: script, PayloadLength: payloadLen})
	if err != nil {
		log.Warn("solver failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: solver: %v", errs.ErrSchemaMismatch, err)
	}
	if len(out.Schedule) == 0 {
		return nil, fmt.Errorf("%w: solver returned no pairs", errs.ErrSchemaMismatch)
	}
	log.Debug("solver produced schedule", map[string]interface{}{"pairs": len(out.Schedule)})
	return out.Schedule, nil
}
