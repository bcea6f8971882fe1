package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"tabletrack/server/bets"
	"tabletrack/server/engine"
	"tabletrack/server/feed"
	"tabletrack/server/store"
	"tabletrack/server/strategy"
)

// Config is the process environment. Session documents (count profile,
// rules, risk model, zones) live as JSON files under ConfigDir.
type Config struct {
	DatabaseURL      string  `env:"DATABASE_URL"`
	ConfigDir        string  `env:"CONFIG_DIR" envDefault:"config"`
	Bankroll         float64 `env:"BANKROLL" envDefault:"1000"`
	TableLimit       float64 `env:"TABLE_LIMIT"`
	CorrectionWindow float64 `env:"CORRECTION_WINDOW_SEC"`
	ConfidenceFloor  float64 `env:"CONFIDENCE_FLOOR"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	var migrate bool
	var fixture string
	for _, a := range os.Args[1:] {
		switch {
		case a == "--migrate":
			migrate = true
		case strings.HasPrefix(a, "--"):
			log.Fatalf("unknown flag %s", a)
		default:
			fixture = a
		}
	}

	ctx := context.Background()

	if migrate {
		if cfg.DatabaseURL == "" {
			log.Fatal("--migrate requires DATABASE_URL")
		}
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close(ctx)
		if err := store.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("migration complete")
		if fixture == "" {
			return
		}
	}

	if fixture == "" {
		log.Fatal("usage: server [--migrate] <fixture.json>")
	}
	if err := replay(ctx, cfg, fixture); err != nil {
		log.Fatalf("replay: %v", err)
	}
}

// replay drives one session from a recorded event stream, printing play and
// bet advice as the round develops and the export summary at the end.
func replay(ctx context.Context, cfg Config, fixturePath string) error {
	sc, err := feed.LoadSessionConfig(cfg.ConfigDir)
	if err != nil {
		return err
	}
	session, err := engine.NewSession(engine.SessionConfig{
		Rules:            sc.Rules,
		Profile:          sc.Profile,
		Zones:            sc.Zones,
		CorrectionWindow: cfg.CorrectionWindow,
		ConfidenceFloor:  cfg.ConfidenceFloor,
	})
	if err != nil {
		return err
	}
	advisor, err := strategy.Load(sc.Rules)
	if err != nil {
		return err
	}

	var recorder feed.Recorder
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close(ctx)
		sessionID, err := db.CreateSession(ctx, sc.Profile.Name, sc.Rules, sc.Risk)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		recorder = store.NewSessionRecorder(db, sessionID)
		defer func() {
			if err := db.CompleteSession(ctx, sessionID); err != nil {
				log.Printf("complete session: %v", err)
			}
		}()
		log.Printf("persisting to session %d", sessionID)
	}
	if recorder != nil {
		session.Audit().Subscribe(func(e engine.AuditEntry) {
			if err := recorder.RecordAudit(ctx, e); err != nil {
				log.Printf("record audit seq %d: %v", e.Seq, err)
			}
		})
	}

	events, err := feed.FixtureCapture{Path: fixturePath}.Stream()
	if err != nil {
		return err
	}
	log.Printf("replaying %d events from %s", len(events), fixturePath)

	var outcomes []engine.HandOutcomeRecord
	for _, ev := range events {
		if ev.Obs != nil {
			obs, err := ev.Obs.ToCardObservation(ev.T)
			if err != nil {
				log.Printf("skipping: %v", err)
				continue
			}
			added, err := session.CommitObservation(obs)
			if err != nil {
				log.Printf("observation rejected: %v", err)
				continue
			}
			logAdvice(session, advisor, added)
			continue
		}

		recs, err := dispatch(session, ev)
		if err != nil {
			log.Printf("command %s rejected: %v", ev.Command, err)
			continue
		}
		if len(recs) > 0 {
			outcomes = append(outcomes, recs...)
			if recorder != nil {
				for _, rec := range recs {
					if err := recorder.RecordOutcome(ctx, rec); err != nil {
						log.Printf("record outcome: %v", err)
					}
				}
			}
			tc := session.TrueCount()
			bet := bets.Suggest(tc, cfg.Bankroll, sc.Risk, cfg.TableLimit)
			log.Printf("next bet: %d hand(s) x %.2f (%s)", bet.HandCount, bet.UnitSize, bet.Rationale)
		}
	}

	export := store.Summarize(outcomes, sc.Risk.UnitBase)
	log.Printf("session export: hands=%d wins=%d losses=%d pushes=%d blackjacks=%d avgBet=%.2f net=%.2f stdev=%.2f penDepth=%.3f",
		export.Hands, export.Wins, export.Losses, export.Pushes, export.Blackjacks,
		export.AvgBet, export.Net, export.Stdev, export.PenDepth)
	return nil
}

// logAdvice queries the advisor for the hand that just took a card. Advice
// is a pull-model query; a rejection here never blocks the event stream.
func logAdvice(session *engine.Session, advisor *strategy.Advisor, added engine.CardAdded) {
	if added.Dealer {
		return
	}
	upcard := session.Upcard()
	if upcard == "" {
		return
	}
	hv, err := session.HandView(added.SeatID, added.HandIndex)
	if err != nil || len(hv.Cards) < 2 {
		return
	}
	tc := session.TrueCount()
	advice, err := advisor.Advise(hv, upcard, tc)
	if err != nil {
		if !errors.Is(err, engine.ErrLookup) {
			log.Printf("advise %s hand %d: %v", added.SeatID, added.HandIndex, err)
		}
		return
	}
	line := fmt.Sprintf("%s hand %d vs %s @ TC %+.1f: %s",
		added.SeatID, added.HandIndex, upcard, tc, advice.Action)
	if advice.DeviationTag != "" {
		line += fmt.Sprintf(" [%s] %s", advice.DeviationTag, advice.Tooltip)
	}
	if take, tag := advisor.TakeInsurance(upcard, tc); take {
		line += fmt.Sprintf(" (insurance [%s])", tag)
	}
	log.Print(line)
}

// dispatch applies one operator command to the session. finalizeRound
// returns the settled hand records.
func dispatch(session *engine.Session, ev feed.Event) ([]engine.HandOutcomeRecord, error) {
	p := ev.Payload
	switch ev.Command {
	case "beginRound":
		return nil, session.BeginRound(ev.T)
	case "split":
		return nil, session.Split(ev.T, payloadString(p, "seatId"))
	case "double":
		return nil, session.Double(ev.T, payloadString(p, "seatId"), payloadInt(p, "handIndex"))
	case "overrideCard":
		_, err := session.OverrideCard(ev.T, int64(payloadInt(p, "seq")), engine.Rank(payloadString(p, "rank")))
		return nil, err
	case "finalizeRound":
		results, err := payloadResults(p)
		if err != nil {
			return nil, err
		}
		return session.FinalizeRound(ev.T, results)
	case "resetShoe":
		return nil, session.ResetShoe(ev.T, payloadInt(p, "decks"))
	case "setDecksRemaining":
		return nil, session.SetDecksRemaining(ev.T, payloadFloat(p, "value"))
	}
	return nil, fmt.Errorf("unknown command %q", ev.Command)
}

func payloadString(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func payloadFloat(p map[string]any, key string) float64 {
	f, _ := p[key].(float64)
	return f
}

func payloadInt(p map[string]any, key string) int {
	return int(payloadFloat(p, key))
}

func payloadResults(p map[string]any) ([]engine.HandResult, error) {
	raw, ok := p["outcomes"].([]any)
	if !ok {
		return nil, fmt.Errorf("finalizeRound needs an outcomes list")
	}
	results := make([]engine.HandResult, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("malformed outcome entry %v", item)
		}
		results = append(results, engine.HandResult{
			SeatID:    payloadString(m, "seatId"),
			HandIndex: payloadInt(m, "handIndex"),
			Result:    engine.Outcome(payloadString(m, "result")),
		})
	}
	return results, nil
}
