package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/prpo_backend/config"
	"bitbucket.org/mmdatafocus/prpo_backend/models"
	"bitbucket.org/mmdatafocus/prpo_backend/prpo"
	"bitbucket.org/mmdatafocus/prpo_backend/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	asOfStr := flag.String("as-of", "", "Optional: automation cutoff date (YYYY-MM-DD). Defaults to now in PRPO_TIMEZONE.")
	flag.Parse()

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	config.ConfigureLogger(settings.LogLevel, settings.LogFile)
	logger := config.GetLogger()

	now := time.Now()
	asOf := now.In(settings.Location())
	if strings.TrimSpace(*asOfStr) != "" {
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(*asOfStr), settings.Location())
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid as-of date: %v\n", err)
			os.Exit(1)
		}
		asOf = d
	}

	ctx, correlationId := utils.WithNewCorrelationId(context.Background())
	if err := config.ConnectDatabaseWithRetry(ctx, settings); err != nil {
		fmt.Fprintf(os.Stderr, "connect databases: %v\n", err)
		os.Exit(1)
	}

	result, err := prpo.Consolidate(ctx, models.NewGormStore(), asOf, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "consolidate: %v\n", err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"correlation_id": correlationId,
		"as_of":          asOf.Format(time.RFC3339),
		"keys":           result.Keys,
		"inserted":       result.Inserted,
		"updated":        result.Updated,
	}).Info("consolidation done")
}
