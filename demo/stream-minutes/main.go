package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/saturnines/cloudflare-analytics/pkg/analytics"
	"github.com/saturnines/cloudflare-analytics/pkg/config"
)

const streamMinutesQuery = `
query GetStreamMinutes($accountTag: string!, $start: Date, $end: Date) {
  viewer {
    accounts(filter: { accountTag: $accountTag }) {
      streamMinutesViewedAdaptiveGroups(
        filter: { date_geq: $start, date_lt: $end }
        orderBy: [date_ASC]
      ) {
        dimensions { date }
        sum { minutesViewed }
      }
    }
  }
}
`

func main() {

	if err := config.LoadEnv(); err != nil {
		log.Println(".env file not loaded:", err)
	}

	// Reads CLOUDFLARE_API_TOKEN from the environment
	client, err := analytics.Default("")
	if err != nil {
		log.Fatal(err)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -28)

	response, err := client.Query(streamMinutesQuery, map[string]interface{}{
		"accountTag": os.Getenv("CLOUDFLARE_ACCOUNT_TAG"),
		"start":      start.Format("2006-01-02"),
		"end":        end.Format("2006-01-02"),
	})
	if err != nil {
		log.Fatal(err)
	}

	if len(response.Errors) > 0 {
		log.Fatalf("graphql errors: %v", response.Errors)
	}

	viewer, _ := response.Data["viewer"].(map[string]interface{})
	accounts, _ := viewer["accounts"].([]interface{})
	if len(accounts) == 0 {
		fmt.Println("No accounts in response")
		return
	}

	account, _ := accounts[0].(map[string]interface{})
	groups, _ := account["streamMinutesViewedAdaptiveGroups"].([]interface{})

	fmt.Printf("Stream minutes over the last 28 days (%d days with data):\n", len(groups))
	for _, g := range groups {
		group, _ := g.(map[string]interface{})
		dimensions, _ := group["dimensions"].(map[string]interface{})
		sum, _ := group["sum"].(map[string]interface{})
		fmt.Printf("  %v: %v minutes\n", dimensions["date"], sum["minutesViewed"])
	}
}
