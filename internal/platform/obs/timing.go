package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

// DecisionIDKey correlates every log line emitted while servicing one
// decision tick.
const DecisionIDKey ctxKey = "decision_id"

func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	decisionID, _ := ctx.Value(DecisionIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("decision_id=%s op=%s dur=%dms err=%v", decisionID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("decision_id=%s op=%s dur=%dms", decisionID, name, dur.Milliseconds())
	}
}
