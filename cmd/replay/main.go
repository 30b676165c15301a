// Replay feeds a recorded tick CSV (ts,symbol,ltp) through a fresh engine
// and prints the resulting snapshots, so a day of market data can be re-run
// against the current state machines offline.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"gatebot-go/internal/config"
	"gatebot-go/internal/history"
	"gatebot-go/internal/instrument"
	"gatebot-go/internal/runtime"
	"gatebot-go/internal/signal"
	"gatebot-go/internal/util"
)

// nopSink discards order intents; a replay must never place orders.
type nopSink struct{}

func (nopSink) Submit(instrument.Instrument, signal.Side, float64) {}

func main() {
	ticksPath := flag.String("ticks", "", "CSV file of ticks: ts,symbol,ltp")
	entrySymbol := flag.String("entry", "", "symbol to arm with an ENTRY signal before the first tick")
	logLevel := flag.String("log-level", "warn", "log verbosity during replay")
	flag.Parse()

	log := util.NewLogger(*logLevel)
	if *ticksPath == "" {
		log.Fatal().Msg("-ticks is required")
	}

	file, err := os.Open(*ticksPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open ticks file")
	}
	defer file.Close()

	cfg := config.Default()
	table := instrument.NewTable(cfg.InstrumentList())
	mgr := runtime.NewManager(table, runtime.Options{
		WindowMs:   cfg.Paper.WindowMs,
		GateMinPnl: cfg.Live.GateMinPnl,
		LockMs:     cfg.Live.LockMs,
	}, history.Nop{}, nopSink{}, log)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 3

	var line, applied int
	armed := *entrySymbol == ""
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Int("line", line).Msg("read ticks file")
		}
		line++

		ts, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			// Header or malformed line.
			continue
		}
		symbol := record[1]
		ltp, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			log.Warn().Int("line", line).Str("ltp", record[2]).Msg("skipping bad price")
			continue
		}

		if !armed {
			if _, err := mgr.HandleSignal(*entrySymbol, signal.Entry, ts); err != nil {
				log.Fatal().Err(err).Msg("arm entry signal")
			}
			armed = true
		}
		if err := mgr.HandleTick(symbol, ltp, ts); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("tick dropped")
			continue
		}
		applied++
	}

	out, err := json.MarshalIndent(mgr.Snapshots(), "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("marshal snapshots")
	}
	fmt.Printf("replayed %d ticks (%d lines)\n%s\n", applied, line, out)
}
