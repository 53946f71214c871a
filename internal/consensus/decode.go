package consensus

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"SignalDesk/internal/domain/models"
)

// rawVerdict mirrors the JSON payload providers are instructed to emit.
// Some backends report a 0..1 confidence instead of the 1..10 sentiment,
// so both are accepted and normalized here.
type rawVerdict struct {
	Action         string   `json:"action"`
	Sentiment      *float64 `json:"sentiment"`
	Confidence     *float64 `json:"confidence"`
	Support        float64  `json:"support"`
	Resistance     float64  `json:"resistance"`
	Reason         string   `json:"reason"`
	PositionAdvice string   `json:"position_advice"`
}

// extractJSON pulls the first balanced JSON object out of a chatty
// response. Models wrap payloads in prose and markdown fences routinely.
func extractJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case esc:
			esc = false
		case inStr:
			if c == '\\' {
				esc = true
			} else if c == '"' {
				inStr = false
			}
		case c == '"':
			inStr = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

// DecodeVerdict parses a provider's raw text into a canonical Verdict.
// Anything that fails to parse into a well-formed verdict is a malformed
// response, never a partial one.
func DecodeVerdict(raw string) (*models.Verdict, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var rv rawVerdict
	if err := json.Unmarshal([]byte(payload), &rv); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	action := models.Action(strings.ToUpper(strings.TrimSpace(rv.Action)))
	switch action {
	case models.ActionBuy, models.ActionSell, models.ActionHold:
	default:
		return nil, fmt.Errorf("unknown action %q", rv.Action)
	}

	sentiment, err := normalizeSentiment(rv.Sentiment, rv.Confidence)
	if err != nil {
		return nil, err
	}

	return &models.Verdict{
		Action:         action,
		Sentiment:      sentiment,
		Support:        rv.Support,
		Resistance:     rv.Resistance,
		Reason:         strings.TrimSpace(rv.Reason),
		PositionAdvice: strings.TrimSpace(rv.PositionAdvice),
	}, nil
}

// normalizeSentiment maps either a 1..10 sentiment or a 0..1 confidence
// onto the canonical 1..10 scale.
func normalizeSentiment(sentiment, confidence *float64) (int, error) {
	switch {
	case sentiment != nil:
		s := int(math.Round(*sentiment))
		if s < 1 || s > 10 {
			return 0, fmt.Errorf("sentiment %v out of range", *sentiment)
		}
		return s, nil
	case confidence != nil:
		c := *confidence
		if c < 0 || c > 1 {
			return 0, fmt.Errorf("confidence %v out of range", c)
		}
		s := int(math.Round(1 + c*9))
		if s < 1 {
			s = 1
		}
		if s > 10 {
			s = 10
		}
		return s, nil
	default:
		return 0, fmt.Errorf("neither sentiment nor confidence present")
	}
}
