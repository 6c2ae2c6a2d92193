// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/probcomp/bayesdb/internal/parser"
	"github.com/probcomp/bayesdb/pkg/bayesdb"
)

func runCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run <path.bdb> <script.bql>",
		Short: "Execute a BQL script against a single-file database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(args[0], args[1], configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a bayesdb.toml overriding defaults")
	return cmd
}

func runScript(dbPath, scriptPath, configPath string) error {
	text, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", scriptPath, err)
	}
	stmts, err := parser.ParseAll(string(text))
	if err != nil {
		return err
	}

	db, err := bayesdb.OpenWith(dbPath, bayesdb.OpenOptions{ConfigPath: configPath})
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	defer db.Close()

	ctx := context.Background()
	for _, stmt := range stmts {
		cur, err := db.ExecuteStmt(ctx, stmt)
		if err != nil {
			return err
		}
		if err := printCursor(ctx, cur); err != nil {
			return err
		}
	}
	return nil
}

func printCursor(ctx context.Context, cur *bayesdb.Cursor) error {
	cols, err := cur.Columns()
	if err != nil || len(cols) == 0 {
		return nil
	}
	fmt.Println(strings.Join(cols, "\t"))

	dest := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for {
		ok, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := cur.Scan(ptrs...); err != nil {
			return err
		}
		cells := make([]string, len(dest))
		for i, v := range dest {
			cells[i] = fmt.Sprint(v)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}
