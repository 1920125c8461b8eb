// fitlog はヘルスメトリクス同期サービスのエントリーポイント。
// serve/worker/backfill/migrate/healthcheck のサブコマンドを提供する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/fitlog/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
