// storecheck is a maintenance tool for the emotion row store: table
// counts, label distribution, and a relabel pass that rewrites raw
// nine-class classifier labels left behind by older writers onto the
// four-class vocabulary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	serengine "github.com/eefei22/well-bot-EmotionRecognition"
	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
)

var emotionTables = []string{"voice_emotion", "face_emotion", "bvs_emotion"}

func main() {
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	relabel := flag.Bool("relabel", false, "rewrite raw classifier labels onto the four-class vocabulary")
	apply := flag.Bool("apply", false, "apply changes (relabel is a dry run without it)")
	user := flag.String("user", "", "restrict relabel to one user id")
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "no database URL: pass -database-url or set DATABASE_URL")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := ensureSchema(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}

	if *relabel {
		if err := relabelTables(ctx, pool, *user, *apply); err != nil {
			fmt.Fprintf(os.Stderr, "relabel: %v\n", err)
			os.Exit(1)
		}
		return
	}

	report(ctx, pool)
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'voice_emotion')`,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	fmt.Println("fresh database, applying schema")
	_, err = pool.Exec(ctx, string(serengine.SchemaSQL))
	return err
}

func report(ctx context.Context, pool *pgxpool.Pool) {
	fmt.Println("Table            Rows     Synthetic")
	fmt.Println("───────────────────────────────────")
	for _, table := range emotionTables {
		var total, synthetic int64
		pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&total)
		pool.QueryRow(ctx, "SELECT count(*) FROM "+table+" WHERE is_synthetic").Scan(&synthetic)
		fmt.Printf("%-16s %-8d %d\n", table, total, synthetic)
	}
	var logRows int64
	pool.QueryRow(ctx, "SELECT count(*) FROM emotional_log").Scan(&logRows)
	fmt.Printf("%-16s %d\n", "emotional_log", logRows)

	for _, table := range emotionTables {
		fmt.Printf("\n── %s label distribution ──\n", table)
		rows, err := pool.Query(ctx,
			"SELECT predicted_emotion, count(*) FROM "+table+" GROUP BY predicted_emotion ORDER BY count(*) DESC")
		if err != nil {
			fmt.Printf("  query failed: %v\n", err)
			continue
		}
		empty := true
		for rows.Next() {
			var label string
			var count int64
			rows.Scan(&label, &count)
			empty = false
			switch {
			case isCanonical(label):
				fmt.Printf("  %-12s %d\n", label, count)
			default:
				if mapped, ok := emotion.Normalize(label); ok {
					fmt.Printf("  %-12s %d  (raw, maps to %s)\n", label, count, mapped)
				} else {
					fmt.Printf("  %-12s %d  (unmappable)\n", label, count)
				}
			}
		}
		rows.Close()
		if empty {
			fmt.Println("  (no rows)")
		}
	}
}

func isCanonical(label string) bool {
	for _, l := range emotion.Labels() {
		if label == string(l) {
			return true
		}
	}
	return false
}

// relabelTables rewrites raw classifier labels in place. Rows whose label
// maps to nothing (neutral and friends) are reported but never touched;
// deleting data is out of scope for this tool.
func relabelTables(ctx context.Context, pool *pgxpool.Pool, user string, apply bool) error {
	if !apply {
		fmt.Println("dry run: pass -apply to write changes")
	}

	for _, table := range emotionTables {
		query := "SELECT DISTINCT predicted_emotion FROM " + table
		args := []any{}
		if user != "" {
			query += " WHERE user_id = $1"
			args = append(args, user)
		}
		rows, err := pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", table, err)
		}
		var labels []string
		for rows.Next() {
			var label string
			if err := rows.Scan(&label); err != nil {
				rows.Close()
				return fmt.Errorf("%s: %w", table, err)
			}
			labels = append(labels, label)
		}
		rows.Close()

		for _, label := range labels {
			if isCanonical(label) {
				continue
			}
			mapped, ok := emotion.Normalize(label)
			if !ok {
				var count int64
				pool.QueryRow(ctx, "SELECT count(*) FROM "+table+" WHERE predicted_emotion = $1", label).Scan(&count)
				fmt.Printf("%s: %d row(s) with unmappable label %q left untouched\n", table, count, label)
				continue
			}

			update := "UPDATE " + table + " SET predicted_emotion = $1 WHERE predicted_emotion = $2"
			updateArgs := []any{string(mapped), label}
			if user != "" {
				update += " AND user_id = $3"
				updateArgs = append(updateArgs, user)
			}

			if !apply {
				var count int64
				countQuery := "SELECT count(*) FROM " + table + " WHERE predicted_emotion = $1"
				countArgs := []any{label}
				if user != "" {
					countQuery += " AND user_id = $2"
					countArgs = append(countArgs, user)
				}
				pool.QueryRow(ctx, countQuery, countArgs...).Scan(&count)
				fmt.Printf("%s: would relabel %d row(s) %q -> %q\n", table, count, label, mapped)
				continue
			}

			tag, err := pool.Exec(ctx, update, updateArgs...)
			if err != nil {
				return fmt.Errorf("%s: relabel %q: %w", table, label, err)
			}
			fmt.Printf("%s: relabeled %d row(s) %q -> %q\n", table, tag.RowsAffected(), label, mapped)
		}
	}
	return nil
}
