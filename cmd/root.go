// Package cmd wires the cobra/viper CLI to the rest of the proxy: parse
// flags and config, build the upstream pool and splitter instance, then
// hand both to the tcp server.
package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"redisplit/config"
	"redisplit/lib/logger"
	"redisplit/resp/handler"
	"redisplit/splitter"
	"redisplit/stats"
	"redisplit/tcp"
	"redisplit/upstream"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "redisplit",
	Short: "A transparent Redis proxy that splits multi-key commands across shards",
	Long: `redisplit is a transparent Redis proxy. It accepts client commands,
fragments multi-key commands (MGET, MSET, and sum-across-keys commands such
as DEL) across the upstream hosts responsible for each key, and assembles
the per-shard replies back into the single reply the client expects.`,
	RunE: run,
}

// Execute runs the redisplit command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(64)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.redisplit.yaml)")

	rootCmd.PersistentFlags().String("bind", config.Properties.Bind, "address to bind for client connections")
	rootCmd.PersistentFlags().Int("port", config.Properties.Port, "port to listen on for client connections")
	rootCmd.PersistentFlags().StringSlice("upstreams", nil, "addresses of the upstream redis nodes to shard across")
	rootCmd.PersistentFlags().String("stat-prefix", config.Properties.StatPrefix, "prefix applied to every exported counter")
	rootCmd.PersistentFlags().String("log-dir", config.Properties.LogDir, "directory log files are written to")
	rootCmd.PersistentFlags().String("log-level", config.Properties.LogLevel, "log level setting (the logger does not filter by level)")
	rootCmd.PersistentFlags().String("metrics-bind", config.Properties.MetricsBind, "address to serve /metrics on")

	_ = viper.BindPFlag("bind", rootCmd.PersistentFlags().Lookup("bind"))
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("upstreams", rootCmd.PersistentFlags().Lookup("upstreams"))
	_ = viper.BindPFlag("stat-prefix", rootCmd.PersistentFlags().Lookup("stat-prefix"))
	_ = viper.BindPFlag("log-dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("metrics-bind", rootCmd.PersistentFlags().Lookup("metrics-bind"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".redisplit")
		viper.AddConfigPath("$HOME")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("redisplit")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("unable to read config: %v\n", err)
		}
	}

	if err := viper.Unmarshal(config.Properties); err != nil {
		fmt.Printf("unable to decode config: %v\n", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger.Setup(&logger.Settings{
		Path:       config.Properties.LogDir,
		Name:       "redisplit",
		Ext:        "log",
		TimeFormat: "2006-01-02",
	})

	if len(config.Properties.Upstreams) == 0 {
		return fmt.Errorf("redisplit: no upstreams configured; pass --upstreams host:port[,host:port...]")
	}

	pool := upstream.NewConsistentHashPool(config.Properties.Upstreams)
	sink := stats.NewSink(prometheus.DefaultRegisterer, config.Properties.StatPrefix)
	inst := splitter.NewInstance(pool, sink)
	h := handler.MakeHandler(inst)

	go serveMetrics(config.Properties.MetricsBind)

	return tcp.ListenAndServeWithSignal(&tcp.Config{
		Address: fmt.Sprintf("%s:%d", config.Properties.Bind, config.Properties.Port),
	}, h)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error(err)
	}
}
