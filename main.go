package main

import (
	"flag"
	"time"

	"fortio.org/log"
	"fortio.org/scli"
	"github.com/joho/godotenv"
)

func main() {
	selTimeout := flag.Duration("selection-timeout", 60*time.Second,
		"How long to wait for an emoji selection menu before giving up")
	evalDepth := flag.Int("eval-max-depth", 25000, "Maximum interpreter depth for the owner console")
	evalLen := flag.Int("eval-max-len", 10000, "Maximum length of console eval results")
	evalDur := flag.Duration("eval-max-duration", 3*time.Second, "Maximum run time of a console eval")
	evalPanic := flag.Bool("eval-panic", false, "Don't catch panics in the console interpreter (debug)")
	scli.ServerMain()
	// Missing .env is fine, plain environment works too.
	_ = godotenv.Load()
	cfg, err := ConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg.SelectionTimeout = *selTimeout
	cfg.Eval = EvalConfig{
		MaxDepth:    *evalDepth,
		MaxValueLen: *evalLen,
		MaxDuration: *evalDur,
		PanicOK:     *evalPanic,
	}
	Run(cfg)
}
