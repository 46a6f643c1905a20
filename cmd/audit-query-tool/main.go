package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/spf13/cobra"
)

func main() {
	var addr string

	var rootCmd = &cobra.Command{Use: "audit-query-tool"}
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "localhost:9000", "ClickHouse address")

	// Command to list flagged callbacks
	var flaggedCmd = &cobra.Command{
		Use:   "flagged",
		Short: "List recently flagged callbacks",
		Run: func(cmd *cobra.Command, args []string) {
			limit, _ := cmd.Flags().GetInt("limit")
			conn := connect(addr)
			defer conn.Close()

			rows, err := conn.Query(context.Background(),
				"SELECT transaction_id, merchant_reference, reason, processed_at FROM callback_reports WHERE flagged = 1 ORDER BY processed_at DESC LIMIT ?", limit)
			if err != nil {
				log.Fatal(err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "TRANSACTION ID\tREFERENCE\tREASON\tPROCESSED AT")
			for rows.Next() {
				var id, reference, reason string
				var processedAt time.Time
				if err := rows.Scan(&id, &reference, &reason, &processedAt); err != nil {
					log.Fatal(err)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, reference, reason, processedAt.Format(time.RFC3339))
			}
			w.Flush()
		},
	}
	flaggedCmd.Flags().Int("limit", 20, "Number of rows to show")

	// Command to rank baskets by failed-callback volume
	var topBasketsCmd = &cobra.Command{
		Use:   "top-baskets",
		Short: "Rank baskets by failed callback count",
		Run: func(cmd *cobra.Command, args []string) {
			limit, _ := cmd.Flags().GetInt("limit")
			conn := connect(addr)
			defer conn.Close()

			rows, err := conn.Query(context.Background(),
				"SELECT basket_id, count() AS failures FROM callback_reports WHERE status != '14' AND basket_id != 0 GROUP BY basket_id ORDER BY failures DESC LIMIT ?", limit)
			if err != nil {
				log.Fatal(err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "BASKET ID\tFAILED CALLBACKS")
			for rows.Next() {
				var basketID int64
				var failures uint64
				if err := rows.Scan(&basketID, &failures); err != nil {
					log.Fatal(err)
				}
				fmt.Fprintf(w, "%d\t%d\n", basketID, failures)
			}
			w.Flush()
		},
	}
	topBasketsCmd.Flags().Int("limit", 10, "Number of rows to show")

	rootCmd.AddCommand(flaggedCmd, topBasketsCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func connect(addr string) clickhouse.Conn {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
	})
	if err != nil {
		log.Fatal(err)
	}
	return conn
}
