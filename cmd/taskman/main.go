// Command taskman はタスク管理APIサーバーとバックグラウンドワーカーを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/taskman/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "taskman: %v\n", err)
		os.Exit(1)
	}
}
