package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"

	"payfort-gateway/internal/payfort"
)

func main() {
	// 1. Setting up flags
	targetURL := flag.String("target", "http://localhost:8080/payment/payfort/feedback", "Target URL for sending callbacks")
	rps := flag.Int("rps", 20, "Requests per second")
	phrase := flag.String("phrase", "resp-phrase", "SHA response phrase the target verifies with")
	digest := flag.String("digest", "SHA-256", "Digest method (SHA-256 or SHA-512)")
	siteID := flag.Int64("site", 26, "Site ID used in merchant references")
	failureRate := flag.Int("failures", 20, "Percentage of generated callbacks that report a declined payment")
	flag.Parse()

	log.Printf("Starting generator: target=%s, rps=%d\n", *targetURL, *rps)

	// 2. Managing the request frequency via ticker
	ticker := time.NewTicker(time.Second / time.Duration(*rps))
	defer ticker.Stop()

	// 3. Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Main loop
	for {
		select {
		case <-ticker.C:
			// Start sending in a goroutine so as not to block the ticker
			go sendCallback(*targetURL, *phrase, *digest, *siteID, *failureRate)
		case <-ctx.Done():
			log.Println("Shutting down generator...")
			return
		}
	}
}

// sendCallback fabricates one gateway callback, signs it the way the real
// gateway does and posts it as a URL-encoded form.
func sendCallback(target, phrase, digest string, siteID int64, failureRate int) {
	fields := map[string]string{
		"merchant_reference":  fmt.Sprintf("%d-%d-%d", siteID, rand.Intn(100000)+1, rand.Intn(100000)+1),
		"command":             payfort.CommandPurchase,
		"merchant_identifier": "mid-generator",
		"amount":              fmt.Sprintf("%d", rand.Intn(10000000)),
		"currency":            "SAR",
		"customer_email":      faker.Email(),
	}

	if rand.Intn(100) < failureRate {
		fields["status"] = "02"
		fields["response_code"] = "02777"
		fields["eci"] = ""
		fields["fort_id"] = ""
	} else {
		fields["status"] = payfort.SuccessStatus
		fields["response_code"] = "14000"
		fields["eci"] = "ECI"
		fields["fort_id"] = fmt.Sprintf("1492%d", rand.Int63n(1_000_000_000_000))
	}

	signature, err := payfort.Sign(phrase, digest, fields)
	if err != nil {
		log.Printf("ERROR: failed to sign callback: %v", err)
		return
	}

	form := url.Values{"signature": {signature}}
	for k, v := range fields {
		form.Set(k, v)
	}

	resp, err := http.Post(target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("ERROR: failed to send callback: %v", err)
		return
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body : %v", err)
		}
	}()

	// Unknown baskets answer 404; that still exercises the full
	// validate-and-record path on the receiving side.
	log.Printf("INFO: callback sent, reference=%s status=%s -> %d",
		fields["merchant_reference"], fields["status"], resp.StatusCode)
}
