package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"atmosenergy/lib/configutil"
	"atmosenergy/lib/restyutil"
	"atmosenergy/lib/scrapers/atmos"
	"atmosenergy/lib/serviceutil"
	"atmosenergy/lib/telemetry"
	"atmosenergy/lib/usagestore"

	"github.com/spf13/cobra"
)

type Config struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Months   int    `yaml:"months" json:"months"`
	Output   string `yaml:"output" json:"output"`
	Db       string `yaml:"db" json:"db"`
}

// flag values overwrite anything the config file provides
func mergeConfig(flags, file Config) Config {
	if flags.Username == "" {
		flags.Username = file.Username
	}
	if flags.Password == "" {
		flags.Password = file.Password
	}
	if flags.Months == 0 {
		flags.Months = file.Months
	}
	if flags.Output == "" {
		flags.Output = file.Output
	}
	if flags.Db == "" {
		flags.Db = file.Db
	}
	return flags
}

var (
	fetchUsername *string
	fetchPassword *string
	fetchConfig   *string
	fetchMonths   *int
	fetchOutput   *string
	fetchDb       *string
	fetchDebug    *bool
)

func init() {
	fetchUsername = fetchCmd.Flags().StringP("username", "u", "", "The account center username.")
	fetchPassword = fetchCmd.Flags().StringP("password", "p", "", "The account center password.")
	fetchConfig = fetchCmd.Flags().StringP("config", "c", "", "A config file to read credentials and options from.")
	fetchMonths = fetchCmd.Flags().Int("months", 0, "How many billing periods to fetch, starting from the current one.")
	fetchOutput = fetchCmd.Flags().StringP("output", "o", "", "Write readings to a csv file instead of stdout.")
	fetchDb = fetchCmd.Flags().String("db", "", "A sqlite database path (or libsql:// url) to upsert readings into.")
	fetchDebug = fetchCmd.Flags().Bool("debug", false, "Enable debug logs and dump http traffic to .dev/resty/atmos.")

	rootCmd.AddCommand(fetchCmd)
}

func readFetchConfig() Config {
	cfg := Config{
		Username: *fetchUsername,
		Password: *fetchPassword,
		Months:   *fetchMonths,
		Output:   *fetchOutput,
		Db:       *fetchDb,
	}
	if *fetchConfig != "" {
		fileCfg, err := configutil.ReadConfig[Config](*fetchConfig)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}
	if cfg.Months == 0 {
		cfg.Months = 1
	}
	if cfg.Username == "" || cfg.Password == "" {
		serviceutil.Fatal(
			"missing credentials",
			fmt.Errorf("provide --username and --password or a --config file"),
		)
	}
	return cfg
}

func openStore(db string) (usagestore.Store, error) {
	if strings.HasPrefix(db, "libsql://") {
		return usagestore.OpenRemote(db)
	}
	return usagestore.Open(db)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--months <n>] [--output <path/to/usage.csv>] [--db <path/to/usage.db>]",
	Short: "Logs into the account center and downloads daily usage readings.",
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*fetchDebug)
		if *fetchDebug {
			atmos.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/atmos"))
		}
		cfg := readFetchConfig()
		ctx := cmd.Context()

		client, err := atmos.NewClient(ctx, atmos.ClientOptions{
			Username: cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize client", err)
		}
		defer func() {
			err := client.Logout(context.Background())
			if err != nil {
				slog.Warn("failed to log out", "err", err)
			}
		}()

		err = client.Login(ctx)
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}
		slog.Info("logged in", "username", cfg.Username)

		var usage []atmos.Reading
		if cfg.Months <= 1 {
			usage, err = client.GetCurrentUsage(ctx)
		} else {
			usage, err = client.GetUsageHistory(ctx, cfg.Months)
		}
		if err != nil {
			serviceutil.Fatal("failed to fetch usage", err)
		}
		slog.Info("fetched usage", "readings", len(usage), "months", cfg.Months)

		if cfg.Db != "" {
			store, err := openStore(cfg.Db)
			if err != nil {
				serviceutil.Fatal("failed to open db", err)
			}
			defer store.Close()

			err = store.Push(ctx, usage)
			if err != nil {
				serviceutil.Fatal("failed to write readings to db", err)
			}
		}
		if cfg.Output != "" {
			err = writeCsv(usage, cfg.Output)
			if err != nil {
				serviceutil.Fatal("failed to write csv", err)
			}
			return
		}
		printTable(usage)
	},
}
