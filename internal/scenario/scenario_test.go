package scenario

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/model"
)

type memStorage struct {
	batches int
	records []model.EventRecord
}

func (m *memStorage) PutEventBatch(records []model.EventRecord) error {
	m.batches++
	m.records = append(m.records, append([]model.EventRecord(nil), records...)...)
	return nil
}

const swapScenarioJSON = `{
	"name": "zero-fee-swap",
	"start_time": 1000,
	"pool": {
		"address": "0x2000000000000000000000000000000000000001",
		"owner": "0x3000000000000000000000000000000000000001",
		"token0": "0x1000000000000000000000000000000000000001",
		"token1": "0x1000000000000000000000000000000000000002",
		"tick_spacing": 60,
		"fee_pips": 0
	},
	"accounts": [
		{
			"address": "0x3000000000000000000000000000000000000002",
			"balance0": "10000000000000000000",
			"balance1": "10000000000000000000"
		},
		{
			"address": "0x3000000000000000000000000000000000000003",
			"balance0": "1000000"
		}
	],
	"steps": [
		{"op": "initialize", "sqrt_price_x96": "79228162514264337593543950336"},
		{
			"op": "mint",
			"account": "0x3000000000000000000000000000000000000002",
			"tick_lower": -887220,
			"tick_upper": 887220,
			"liquidity": "2000000000000000000"
		},
		{
			"op": "swap",
			"account": "0x3000000000000000000000000000000000000003",
			"zero_for_one": true,
			"amount": "1000"
		},
		{"op": "advance-time", "seconds": 10},
		{"op": "observe", "account": "0x3000000000000000000000000000000000000003", "seconds_agos": [0]}
	]
}`

func TestRunnerExecutesSwapScenario(t *testing.T) {
	scn, err := Parse([]byte(swapScenarioJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	store := &memStorage{}
	runner, err := NewRunner(scn, RunConfig{RunID: "run-1", BatchSize: 2}, store, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Steps != 5 {
		t.Fatalf("steps = %d, want 5", summary.Steps)
	}
	if summary.Events != 3 {
		t.Fatalf("events = %d, want 3", summary.Events)
	}
	if summary.FinalState.Tick != -1 {
		t.Fatalf("final tick = %d, want -1", summary.FinalState.Tick)
	}
	if summary.FinalState.Liquidity != "2000000000000000000" {
		t.Fatalf("final liquidity = %s", summary.FinalState.Liquidity)
	}

	if len(store.records) != 3 {
		t.Fatalf("stored %d records, want 3", len(store.records))
	}
	if store.batches < 2 {
		t.Fatalf("stored in %d batches, want at least 2", store.batches)
	}
	for i, name := range []string{"Initialize", "Mint", "Swap"} {
		if store.records[i].EventName != name {
			t.Fatalf("record %d = %s, want %s", i, store.records[i].EventName, name)
		}
		if store.records[i].Seq != uint64(i+1) {
			t.Fatalf("record %d seq = %d", i, store.records[i].Seq)
		}
	}
	if store.records[2].Step != 3 {
		t.Fatalf("swap record step = %d, want 3", store.records[2].Step)
	}

	var swap model.SwapEventData
	if err := json.Unmarshal(store.records[2].Payload, &swap); err != nil {
		t.Fatalf("decode swap payload: %v", err)
	}
	if swap.Amount0 != "1000" || swap.Amount1 != "-999" {
		t.Fatalf("swap amounts = %s / %s, want 1000 / -999", swap.Amount0, swap.Amount1)
	}
	if swap.Tick != -1 {
		t.Fatalf("swap tick = %d, want -1", swap.Tick)
	}

	// The trader paid 1000 of token0 and received 999 of token1.
	trader := common.HexToAddress("0x3000000000000000000000000000000000000003")
	token0 := common.HexToAddress("0x1000000000000000000000000000000000000001")
	token1 := common.HexToAddress("0x1000000000000000000000000000000000000002")
	if got := runner.Bank().BalanceOf(token0, trader); !got.Eq(uint256.NewInt(999000)) {
		t.Fatalf("trader token0 = %s, want 999000", got)
	}
	if got := runner.Bank().BalanceOf(token1, trader); !got.Eq(uint256.NewInt(999)) {
		t.Fatalf("trader token1 = %s, want 999", got)
	}
}

const gatedScenarioJSON = `{
	"name": "gated-mint",
	"start_time": 1000,
	"pool": {
		"address": "0x2000000000000000000000000000000000000001",
		"owner": "0x3000000000000000000000000000000000000001",
		"token0": "0x1000000000000000000000000000000000000001",
		"token1": "0x1000000000000000000000000000000000000002",
		"tick_spacing": 60,
		"fee_pips": 3000
	},
	"gate": {
		"address": "0x2000000000000000000000000000000000000002",
		"vault": "0x2000000000000000000000000000000000000003",
		"treasury": "0x2000000000000000000000000000000000000004"
	},
	"accounts": [
		{
			"address": "0x3000000000000000000000000000000000000002",
			"balance0": "10000000000000000000",
			"balance1": "10000000000000000000"
		}
	],
	"steps": [
		{"op": "initialize", "sqrt_price_x96": "79228162514264337593543950336"},
		{
			"op": "mint-with-rebate",
			"account": "0x3000000000000000000000000000000000000002",
			"recipient": "0x3000000000000000000000000000000000000002",
			"tick_lower": -887220,
			"tick_upper": 887220,
			"liquidity": "2000000000000000000"
		}
	]
}`

func TestRunnerExecutesGatedScenario(t *testing.T) {
	scn, err := Parse([]byte(gatedScenarioJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	store := &memStorage{}
	runner, err := NewRunner(scn, RunConfig{RunID: "run-2", BatchSize: 100}, store, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var qualified *model.QualifiedEventData
	for _, record := range store.records {
		if record.EventName == "Qualified" {
			var data model.QualifiedEventData
			if err := json.Unmarshal(record.Payload, &data); err != nil {
				t.Fatalf("decode qualified payload: %v", err)
			}
			qualified = &data
		}
	}
	if qualified == nil {
		t.Fatal("no Qualified record stored")
	}
	if qualified.ShareBps != 10000 || qualified.Tier != 3 {
		t.Fatalf("qualified share %d tier %d, want 10000 / 3", qualified.ShareBps, qualified.Tier)
	}

	vault := common.HexToAddress("0x2000000000000000000000000000000000000003")
	token0 := common.HexToAddress("0x1000000000000000000000000000000000000001")
	if got := runner.Bank().BalanceOf(token0, vault); got.IsZero() {
		t.Fatal("vault received no rebate")
	}
}

func TestParseRejectsInvalidScenarios(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"unknown op", `{"name":"x","pool":{"address":"0x2000000000000000000000000000000000000001","token0":"0x1000000000000000000000000000000000000001","token1":"0x1000000000000000000000000000000000000002","tick_spacing":60},"steps":[{"op":"teleport"}]}`},
		{"gate op without gate", `{"name":"x","pool":{"address":"0x2000000000000000000000000000000000000001","token0":"0x1000000000000000000000000000000000000001","token1":"0x1000000000000000000000000000000000000002","tick_spacing":60},"steps":[{"op":"mint-with-rebate"}]}`},
		{"bad pool address", `{"name":"x","pool":{"address":"nope","token0":"0x1000000000000000000000000000000000000001","token1":"0x1000000000000000000000000000000000000002","tick_spacing":60},"steps":[{"op":"initialize"}]}`},
		{"no steps", `{"name":"x","pool":{"address":"0x2000000000000000000000000000000000000001","token0":"0x1000000000000000000000000000000000000001","token1":"0x1000000000000000000000000000000000000002","tick_spacing":60},"steps":[]}`},
		{"missing name", `{"pool":{"address":"0x2000000000000000000000000000000000000001","token0":"0x1000000000000000000000000000000000000001","token1":"0x1000000000000000000000000000000000000002","tick_spacing":60},"steps":[{"op":"initialize"}]}`},
	}
	for _, tc := range cases {
		if _, err := Parse([]byte(tc.json)); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestRunnerAbortsOnFailedStep(t *testing.T) {
	scn, err := Parse([]byte(swapScenarioJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// Swapping before initialize must abort the run at step one.
	scn.Steps = scn.Steps[2:]

	store := &memStorage{}
	runner, err := NewRunner(scn, RunConfig{RunID: "run-3", BatchSize: 100}, store, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail")
	}
	if len(store.records) != 0 {
		t.Fatalf("stored %d records after failed run, want 0", len(store.records))
	}
}
