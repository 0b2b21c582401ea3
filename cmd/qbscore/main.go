// cmd/qbscore/main.go is the offline conversion tool: it validates packets,
// prints score summaries from saved game files, and converts games to and
// from the match interchange format.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/quizbowl/qbscore/internal/config"
	"github.com/quizbowl/qbscore/internal/export"
	"github.com/quizbowl/qbscore/internal/models"
	"github.com/quizbowl/qbscore/internal/qbj"
)

const stdoutCLIName = "-"

var build string
var semanticVersion = "v0.1.0" + build

func outputWriter(path string) io.WriteCloser {
	if path == stdoutCLIName || path == "" {
		return os.Stdout
	}
	return export.NewDelayFileWriter(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

func readPacket(path string) (*models.Packet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read packet file: %w", err)
	}
	return models.ParsePacket(data)
}

func readSnapshotFile(path string) (*export.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open game file: %w", err)
	}
	defer f.Close()
	return export.ReadSnapshot(f)
}

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	app := &cli.App{
		Name:    "qbscore",
		Usage:   "quizbowl scorekeeping conversion tool",
		Version: semanticVersion,
		Commands: []*cli.Command{
			{
				Name:  "validate-packet",
				Usage: "parse a packet file and report its contents",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true},
				},
				Action: func(ctx *cli.Context) error {
					packet, err := readPacket(ctx.String("input"))
					if err != nil {
						return cli.Exit(err.Error(), 4)
					}
					fmt.Printf("%d tossups, %d bonuses\n", len(packet.Tossups), len(packet.Bonuses))
					return nil
				},
			},
			{
				Name:  "score",
				Usage: "print the score summary of a saved game file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "game", Aliases: []string{"g"}, Required: true},
				},
				Action: func(ctx *cli.Context) error {
					snap, err := readSnapshotFile(ctx.String("game"))
					if err != nil {
						return cli.Exit(err.Error(), 4)
					}
					g, err := export.Unflatten(snap)
					if err != nil {
						return cli.Exit(err.Error(), 4)
					}
					teams := g.TeamNames()
					final := g.FinalScore()
					for i, teamName := range teams {
						fmt.Printf("%s: %d\n", teamName, final[i])
					}
					if g.ProtestsMatter() {
						fmt.Println("Unresolved protests could change this result.")
					}
					return nil
				},
			},
			{
				Name:  "to-qbj",
				Usage: "convert a saved game file to an interchange document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "game", Aliases: []string{"g"}, Required: true},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: stdoutCLIName},
					&cli.StringFlag{Name: "packet-name", Value: ""},
					&cli.IntFlag{Name: "round", Value: 0},
				},
				Action: func(ctx *cli.Context) error {
					snap, err := readSnapshotFile(ctx.String("game"))
					if err != nil {
						return cli.Exit(err.Error(), 4)
					}
					g, err := export.Unflatten(snap)
					if err != nil {
						return cli.Exit(err.Error(), 4)
					}
					doc := qbj.ToMatch(g, ctx.String("packet-name"), ctx.Int("round"))

					w := outputWriter(ctx.String("output"))
					defer w.Close()
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					if err := enc.Encode(doc); err != nil {
						return cli.Exit(fmt.Sprintf("encoding interchange document failed: %v", err), 3)
					}
					return nil
				},
			},
			{
				Name:  "from-qbj",
				Usage: "reconstruct a game file from an interchange document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true},
					&cli.StringFlag{Name: "packet", Aliases: []string{"p"}, Required: true},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "acf"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: stdoutCLIName},
				},
				Action: func(ctx *cli.Context) error {
					data, err := os.ReadFile(ctx.String("input"))
					if err != nil {
						return cli.Exit(fmt.Sprintf("read interchange document: %v", err), 4)
					}
					var doc qbj.Match
					if err := json.Unmarshal(data, &doc); err != nil {
						return cli.Exit(fmt.Sprintf("parse interchange document: %v", err), 4)
					}
					packet, err := readPacket(ctx.String("packet"))
					if err != nil {
						return cli.Exit(err.Error(), 4)
					}
					format, err := config.LoadFormat(ctx.String("format"))
					if err != nil {
						return cli.Exit(err.Error(), 4)
					}

					g, err := qbj.FromMatch(&doc, *packet, format)
					if err != nil {
						return cli.Exit(fmt.Sprintf("import failed: %v", err), 2)
					}

					w := outputWriter(ctx.String("output"))
					defer w.Close()
					if err := export.Flatten(g).WriteJSON(w); err != nil {
						return cli.Exit(fmt.Sprintf("encoding game file failed: %v", err), 3)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
