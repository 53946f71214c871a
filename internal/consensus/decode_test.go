package consensus

import (
	"strings"
	"testing"

	"SignalDesk/internal/domain/models"
)

func TestDecodePlainJSON(t *testing.T) {
	raw := `{"action":"BUY","sentiment":8,"support":101.5,"resistance":106,"reason":"oversold bounce","position_advice":""}`

	v, err := DecodeVerdict(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != models.ActionBuy {
		t.Fatalf("action = %q, want BUY", v.Action)
	}
	if v.Sentiment != 8 {
		t.Fatalf("sentiment = %d, want 8", v.Sentiment)
	}
	if v.Support != 101.5 || v.Resistance != 106 {
		t.Fatalf("levels = %v/%v", v.Support, v.Resistance)
	}
}

func TestDecodeChattyResponseWithFences(t *testing.T) {
	raw := "Here is my analysis:\n```json\n" +
		`{"action":"hold","sentiment":5,"support":99,"resistance":103,"reason":"no edge"}` +
		"\n```\nLet me know if you need more."

	v, err := DecodeVerdict(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Action != models.ActionHold {
		t.Fatalf("action = %q, want HOLD", v.Action)
	}
}

func TestDecodeConfidenceNormalization(t *testing.T) {
	cases := []struct {
		confidence string
		want       int
	}{
		{"0", 1},
		{"0.5", 6}, // 1 + 0.5*9 = 5.5, rounds up
		{"1", 10},
	}
	for _, tc := range cases {
		raw := `{"action":"SELL","confidence":` + tc.confidence + `,"support":90,"resistance":95,"reason":"x"}`
		v, err := DecodeVerdict(raw)
		if err != nil {
			t.Fatalf("confidence %s: %v", tc.confidence, err)
		}
		if v.Sentiment != tc.want {
			t.Fatalf("confidence %s: sentiment = %d, want %d", tc.confidence, v.Sentiment, tc.want)
		}
	}
}

func TestDecodeRejectsUnknownAction(t *testing.T) {
	raw := `{"action":"ACCUMULATE","sentiment":7,"support":90,"resistance":95,"reason":"x"}`
	if _, err := DecodeVerdict(raw); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestDecodeRejectsSentimentOutOfRange(t *testing.T) {
	raw := `{"action":"BUY","sentiment":11,"support":90,"resistance":95,"reason":"x"}`
	if _, err := DecodeVerdict(raw); err == nil {
		t.Fatal("expected error for sentiment 11")
	}
}

func TestDecodeRejectsMissingSentiment(t *testing.T) {
	raw := `{"action":"BUY","support":90,"resistance":95,"reason":"x"}`
	if _, err := DecodeVerdict(raw); err == nil {
		t.Fatal("expected error when sentiment and confidence both absent")
	}
}

func TestDecodeNoJSONObject(t *testing.T) {
	_, err := DecodeVerdict("I cannot analyze this symbol.")
	if err == nil || !strings.Contains(err.Error(), "no JSON object") {
		t.Fatalf("expected no-JSON error, got %v", err)
	}
}

func TestExtractJSONIgnoresBracesInsideStrings(t *testing.T) {
	raw := `prefix {"reason":"support at {100}","action":"HOLD","sentiment":5} suffix`
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, `{"reason"`) || !strings.HasSuffix(got, `5}`) {
		t.Fatalf("extracted %q", got)
	}
}
