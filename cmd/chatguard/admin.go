package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/devricklin/chatguard/internal/biz/usecase"
	"github.com/devricklin/chatguard/internal/conf"
	"github.com/devricklin/chatguard/internal/data"
	"github.com/devricklin/chatguard/internal/mcp"
)

const cliActor = "cli"

// a running bot keeps learned keywords in memory
const reloadHint = " (a running bot picks this up on /reload or POST /api/signals/reload)"

var checkCmd = &cli.Command{
	Name:      "check",
	Usage:     "score a message offline and print the verdict",
	ArgsUsage: "[text...]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "media", Usage: "treat the message as carrying media"},
		&cli.BoolFlag{Name: "new-member", Usage: "treat the sender as a new member"},
	},
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		profile, err := loadProfile(cfg.SignalsPath)
		if err != nil {
			return err
		}

		text := strings.Join(cctx.Args().Slice(), " ")
		if text == "" {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			text = string(b)
		}

		signals := profile.Signals
		// learned keywords count too when a database already exists
		if _, err := os.Stat(cfg.Store.DBPath); err == nil {
			keywords, closeDB, err := openKeywords(cctx.Context, cfg.Store.DBPath)
			if err != nil {
				return err
			}
			defer closeDB()
			signals = signals.WithLearned(keywords.ActiveKeywords())
		}

		res := usecase.Evaluate(text, cctx.Bool("media"), cctx.Bool("new-member"), false, signals)
		verdict := "ok"
		if res.IsSpam {
			verdict = "spam"
		}
		fmt.Printf("%s (score %d, cutoff %d)\n", verdict, res.TotalScore, signals.Thresholds.SpamCutoff)
		for _, r := range res.Reasons {
			fmt.Printf("  - %s\n", r)
		}
		return nil
	},
}

func openKeywords(ctx context.Context, dbPath string) (*usecase.KeywordUsecase, func(), error) {
	repos, err := data.NewRepositories(dbPath)
	if err != nil {
		return nil, nil, err
	}
	keywords := usecase.NewKeywordUsecase(repos.Keyword, zap.NewNop())
	if err := keywords.Load(ctx); err != nil {
		repos.Close()
		return nil, nil, err
	}
	return keywords, func() { repos.Close() }, nil
}

var keywordsCmd = &cli.Command{
	Name:  "keywords",
	Usage: "manage learned spam keywords",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "list learned keywords",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "all", Usage: "include deactivated keywords"},
			},
			Action: func(cctx *cli.Context) error {
				keywords, closeDB, err := keywordsFromFlags(cctx)
				if err != nil {
					return err
				}
				defer closeDB()

				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEYWORD\tCATEGORY\tADDED BY\tADDED AT\tACTIVE")
				for _, kw := range keywords.AllEntries() {
					if !kw.Active && !cctx.Bool("all") {
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", kw.Keyword, kw.Category, kw.AddedBy, kw.AddedAt.Format("2006-01-02 15:04"), kw.Active)
				}
				return tw.Flush()
			},
		},
		{
			Name:      "add",
			Usage:     "learn a keyword",
			ArgsUsage: "<keyword>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "category", Value: "manual"},
			},
			Action: func(cctx *cli.Context) error {
				kw := strings.TrimSpace(cctx.Args().First())
				if kw == "" {
					return errors.New("keyword is required")
				}
				keywords, closeDB, err := keywordsFromFlags(cctx)
				if err != nil {
					return err
				}
				defer closeDB()

				if !keywords.Add(cctx.Context, kw, cctx.String("category"), cliActor, "") {
					return fmt.Errorf("keyword %q already learned or could not be stored", kw)
				}
				fmt.Printf("learned %q%s\n", kw, reloadHint)
				return nil
			},
		},
		{
			Name:      "remove",
			Usage:     "deactivate a learned keyword",
			ArgsUsage: "<keyword>",
			Action: func(cctx *cli.Context) error {
				kw := strings.TrimSpace(cctx.Args().First())
				if kw == "" {
					return errors.New("keyword is required")
				}
				keywords, closeDB, err := keywordsFromFlags(cctx)
				if err != nil {
					return err
				}
				defer closeDB()

				if !keywords.Deactivate(cctx.Context, kw) {
					return fmt.Errorf("keyword %q is not active", kw)
				}
				fmt.Printf("forgot %q%s\n", kw, reloadHint)
				return nil
			},
		},
	},
}

func keywordsFromFlags(cctx *cli.Context) (*usecase.KeywordUsecase, func(), error) {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return nil, nil, err
	}
	return openKeywords(cctx.Context, cfg.Store.DBPath)
}

var whitelistCmd = &cli.Command{
	Name:  "whitelist",
	Usage: "manage trusted users",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "list trusted users",
			Action: func(cctx *cli.Context) error {
				whitelist, closeDB, err := openWhitelist(cctx)
				if err != nil {
					return err
				}
				defer closeDB()

				entries, err := whitelist.List(cctx.Context)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USER ID\tUSERNAME\tADDED BY\tADDED AT")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.UserID, e.Username, e.AddedBy, e.CreatedAt.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			},
		},
		{
			Name:      "add",
			Usage:     "trust a user",
			ArgsUsage: "<user-id> [username]",
			Action: func(cctx *cli.Context) error {
				userID := strings.TrimSpace(cctx.Args().Get(0))
				if userID == "" {
					return errors.New("user id is required")
				}
				whitelist, closeDB, err := openWhitelist(cctx)
				if err != nil {
					return err
				}
				defer closeDB()

				if err := whitelist.Add(cctx.Context, userID, cctx.Args().Get(1), cliActor); err != nil {
					return err
				}
				fmt.Printf("whitelisted %s\n", userID)
				return nil
			},
		},
		{
			Name:      "remove",
			Usage:     "stop trusting a user",
			ArgsUsage: "<user-id>",
			Action: func(cctx *cli.Context) error {
				userID := strings.TrimSpace(cctx.Args().Get(0))
				if userID == "" {
					return errors.New("user id is required")
				}
				whitelist, closeDB, err := openWhitelist(cctx)
				if err != nil {
					return err
				}
				defer closeDB()

				removed, err := whitelist.Remove(cctx.Context, userID)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("%s is not whitelisted", userID)
				}
				fmt.Printf("removed %s\n", userID)
				return nil
			},
		},
	},
}

func openWhitelist(cctx *cli.Context) (*usecase.WhitelistUsecase, func(), error) {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return nil, nil, err
	}
	repos, err := data.NewRepositories(cfg.Store.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return usecase.NewWhitelistUsecase(repos.Whitelist, zap.NewNop()), func() { repos.Close() }, nil
}

var mcpCmd = &cli.Command{
	Name:  "mcp",
	Usage: "serve the admin tools over MCP on stdio",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "base URL of a running chatguard HTTP API",
			EnvVars: []string{"CHATGUARD_API_URL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		apiURL := cctx.String("api-url")
		if apiURL == "" {
			cfg := conf.LoadFromEnv()
			apiURL = fmt.Sprintf("http://%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		}
		return mcp.NewServer(apiURL, version).Run(cctx.Context)
	},
}
