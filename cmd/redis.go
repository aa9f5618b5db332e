package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moodwave/db"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection used by the token blacklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is not set")
		}

		fmt.Println("Connecting to Redis...")
		client, err := db.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.CheckRedis(ctx, client); err != nil {
			return err
		}
		fmt.Println("Redis read/write check passed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
