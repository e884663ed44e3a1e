package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/NordCoder/bazaar/internal/obs"
	"github.com/NordCoder/bazaar/internal/repository/kafka"
)

var topicFlags struct {
	brokers    string
	partitions int
	rf         int
	timeout    time.Duration
}

var topicCmd = &cobra.Command{
	Use:   "topic NAME...",
	Short: "Create Kafka topics for identity events if they do not exist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := obs.NewLogger(obs.LogConfig{Level: "info", Pretty: true, App: "bazaar/authctl"})
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), topicFlags.timeout)
		defer cancel()

		brokers := strings.Split(topicFlags.brokers, ",")
		for _, name := range args {
			if err := kafka.EnsureTopic(ctx, brokers, kafka.TopicSpec{
				Name:              name,
				NumPartitions:     topicFlags.partitions,
				ReplicationFactor: topicFlags.rf,
			}, logger); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	f := topicCmd.Flags()
	f.StringVar(&topicFlags.brokers, "brokers", "localhost:9094", "comma separated broker list")
	f.IntVar(&topicFlags.partitions, "partitions", 3, "partition count for new topics")
	f.IntVar(&topicFlags.rf, "replication-factor", 1, "replication factor for new topics")
	f.DurationVar(&topicFlags.timeout, "timeout", 60*time.Second, "overall deadline")
	rootCmd.AddCommand(topicCmd)
}
