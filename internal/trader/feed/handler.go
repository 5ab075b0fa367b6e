package feed

import (
	"encoding/json"

	"autotrader/internal/trader/statecache"
	"autotrader/metrics"

	"go.uber.org/zap"
)

// TickerMessage is a streamed price update from the market's WebSocket
// ticker channel.
type TickerMessage struct {
	Topic string `json:"topic"`
	Data  struct {
		Price     int64 `json:"price"`
		Timestamp int64 `json:"timestamp"` // milliseconds since epoch
	} `json:"data"`
}

// MakeMessageHandler returns a function that handles incoming WebSocket
// messages by warming the state cache price slot. The feed never writes
// history: snapshots are owned by the synchronize path, so the dedupe and
// ordering invariants stay single-writer.
func MakeMessageHandler(logger *zap.Logger, cache *statecache.Cache) func(msg []byte) {
	return func(msg []byte) {
		// Extract topic string for early filtering
		var meta struct {
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(msg, &meta); err != nil {
			logger.Warn("failed to extract topic", zap.Error(err))
			return
		}
		if meta.Topic != "ticker" {
			return // Ignore non-ticker messages (e.g., subscription responses)
		}

		var parsed TickerMessage
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.Warn("failed to parse ticker payload", zap.Error(err))
			return
		}
		if parsed.Data.Price <= 0 {
			logger.Warn("ignoring non-positive streamed price", zap.Int64("price", parsed.Data.Price))
			return
		}

		cache.SetPrice(parsed.Data.Price)
		metrics.SetPrice(parsed.Data.Price)
	}
}
