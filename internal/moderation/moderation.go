// Package moderation implements C5: the two-tier moderation gate that
// sits between request detection and upstream dialect translation —
// a keyword tier and a classifier tier (via internal/classifier).
package moderation

import (
	"context"
	"fmt"

	"github.com/guardianbridge/gbridge/internal/classifier"
	"github.com/guardianbridge/gbridge/internal/keywordfilter"
	"github.com/guardianbridge/gbridge/internal/profile"
	"github.com/guardianbridge/gbridge/internal/samplestore"
)

// Source identifies which tier produced a Decision.
type Source string

const (
	SourceKeyword Source = "keyword"
	SourceBow     Source = "bow"
	SourceNone    Source = "none"
)

// Verdict is the three-band classifier outcome (per §8 moderation
// laws): p<low -> pass, p>high -> block, else uncertain (treated as
// pass-with-logging, matching bow_predict's behavior of only blocking
// on the high band).
type Verdict string

const (
	VerdictPass      Verdict = "pass"
	VerdictBlock     Verdict = "block"
	VerdictUncertain Verdict = "uncertain"
)

// Decision is the outcome of running both tiers over one request's
// extracted text.
type Decision struct {
	Blocked     bool
	ErrorCode   string
	Reason      string
	Source      Source
	Verdict     Verdict
	Probability float64
}

// Request bundles one moderation call's inputs, assembled by C10 from
// the URL config object (per §6) and the named profile's
// persisted settings.
type Request struct {
	Text string

	BasicEnabled   bool
	KeywordsFile   string
	BasicErrorCode string

	SmartEnabled bool
	ProfileName  string
}

// Engine wires the keyword filter cache, classifier artifact cache, and
// per-profile sample stores together. One Engine serves every profile
// and keywords file configured across all requests.
type Engine struct {
	keywordCache    *keywordfilter.Cache
	classifierCache *classifier.Cache
	profiles        *profile.Store
	stores          storeOpener
}

// storeOpener is narrowed so tests can substitute a stub without
// standing up real sqlite files.
type storeOpener func(dbPath string) (*samplestore.Store, error)

// NewEngine builds an Engine rooted at a profile.Store for persisted
// per-profile settings and artifacts. The keyword and classifier caches
// are accepted rather than built internally so the scheduler (C7) can
// share and invalidate the same classifier.Cache instance this Engine
// reads predictions from, and so both caches can be registered with
// memguard for size-based eviction.
func NewEngine(profiles *profile.Store, keywordCache *keywordfilter.Cache, classifierCache *classifier.Cache) *Engine {
	return &Engine{
		keywordCache:    keywordCache,
		classifierCache: classifierCache,
		profiles:        profiles,
		stores:          samplestore.Open,
	}
}

// Moderate runs the basic tier then, if not already blocked and
// enabled, the smart tier, logging a sample for every smart-tier
// evaluation when the profile's sample_log is set. Returns a Decision
// describing the outcome; callers translate a blocked Decision into the
// BASIC_MODERATION_BLOCKED/SMART_MODERATION_BLOCKED error taxonomy.
func (e *Engine) Moderate(ctx context.Context, req Request) (Decision, error) {
	if req.BasicEnabled && req.KeywordsFile != "" {
		f := e.keywordCache.Get(req.KeywordsFile)
		if match := f.Match(req.Text); match != "" {
			code := req.BasicErrorCode
			if code == "" {
				code = "BASIC_MODERATION_BLOCKED"
			}
			return Decision{
				Blocked:   true,
				ErrorCode: code,
				Reason:    fmt.Sprintf("[%s] Matched keyword: %s", code, match),
				Source:    SourceKeyword,
				Verdict:   VerdictBlock,
			}, nil
		}
	}

	if !req.SmartEnabled || req.ProfileName == "" {
		return Decision{Source: SourceNone, Verdict: VerdictPass}, nil
	}

	return e.smartModerate(ctx, req)
}

func (e *Engine) smartModerate(ctx context.Context, req Request) (Decision, error) {
	cfg, err := e.profiles.Load(req.ProfileName)
	if err != nil {
		return Decision{}, fmt.Errorf("load profile %s: %w", req.ProfileName, err)
	}
	if !cfg.SmartModeration.Enabled {
		return Decision{Source: SourceNone, Verdict: VerdictPass}, nil
	}

	artifactDir := e.profiles.ArtifactDir(req.ProfileName)
	loaded, ok := e.classifierCache.Get(artifactDir)

	var (
		p       float64
		verdict Verdict
	)
	if !ok {
		// No trained model yet: nothing to score against, so the
		// smart tier is silently a no-op pass until the scheduler (C7)
		// produces first artifacts.
		verdict = VerdictPass
	} else {
		p = loaded.Predict(req.Text, classifier.TokenizeOptions{
			CharNgram:    cfg.BowTraining.UseCharNgram,
			BPE:          cfg.BowTraining.UseBPE,
			WordNgram:    cfg.BowTraining.UseWordNgram,
			WordNgramMin: cfg.BowTraining.WordNgramMin,
			WordNgramMax: cfg.BowTraining.WordNgramMax,
		})
		switch {
		case p < cfg.SmartModeration.LowThreshold:
			verdict = VerdictPass
		case p > cfg.SmartModeration.HighThreshold:
			verdict = VerdictBlock
		default:
			verdict = VerdictUncertain
		}
	}

	if cfg.SmartModeration.SampleLog {
		if err := e.logSample(ctx, req.ProfileName, req.Text, verdict); err != nil {
			return Decision{}, err
		}
	}

	if verdict == VerdictBlock {
		return Decision{
			Blocked:     true,
			ErrorCode:   "SMART_MODERATION_BLOCKED",
			Reason:      fmt.Sprintf("classifier probability %.4f exceeds threshold", p),
			Source:      SourceBow,
			Verdict:     verdict,
			Probability: p,
		}, nil
	}

	return Decision{Source: SourceBow, Verdict: verdict, Probability: p}, nil
}

// logSample records one sample for future training. Label follows the
// classifier's own verdict when decisive (1 for block, 0 for pass);
// uncertain samples are logged unlabeled-as-pass (label 0) since the
// source never had ground truth either and relies on the trainer's
// separately-curated labeled history (its sample store populated
// out of band, not purely from serving traffic) — see DESIGN.md.
func (e *Engine) logSample(ctx context.Context, profileName, text string, verdict Verdict) error {
	store, err := e.stores(e.profiles.HistoryDBPath(profileName))
	if err != nil {
		return fmt.Errorf("open sample store for %s: %w", profileName, err)
	}

	label := 0
	if verdict == VerdictBlock {
		label = 1
	}
	_, err = store.Save(ctx, text, label, string(verdict))
	return err
}
