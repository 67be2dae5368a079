package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEventRecordJSONRoundTrip(t *testing.T) {
	original := EventRecord{
		RunID:      "run-1",
		Seq:        12,
		Step:       3,
		Timestamp:  1700000000,
		Pool:       "0x1111111111111111111111111111111111111111",
		EventName:  "Swap",
		Payload:    json.RawMessage(`{"amount0":"1000","amount1":"-999"}`),
		RecordedAt: "2026-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded EventRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestSwapEventDataDecodesFromPayload(t *testing.T) {
	payload := []byte(`{
		"sender": "0x3000000000000000000000000000000000000002",
		"recipient": "0x3000000000000000000000000000000000000002",
		"amount0": "1000",
		"amount1": "-999",
		"sqrt_price_x96": "79228162514264337593543950336",
		"liquidity": "2000000000000000000",
		"tick": -1
	}`)

	var swap SwapEventData
	if err := json.Unmarshal(payload, &swap); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if swap.Amount1 != "-999" {
		t.Fatalf("amount1 = %q, want -999", swap.Amount1)
	}
	if swap.Tick != -1 {
		t.Fatalf("tick = %d, want -1", swap.Tick)
	}
}
