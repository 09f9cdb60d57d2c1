// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"os"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/example/notes/app"
)

func main() {
	err := restkit.Run(context.Background(), app.Init)
	if err != nil {
		os.Exit(1)
	}
}
