package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"repairdesk-service/internal/infrastructure/oauth"
	"repairdesk-service/pkg/logger"
)

const (
	callbackAddr = ":8090"
	redirectURL  = "http://localhost:8090/oauth2callback"
)

// Prints a Gmail refresh token for GMAIL_REFRESH_TOKEN
func main() {
	_ = godotenv.Load()
	log := logger.NewLogger("info")

	clientID, clientSecret := os.Getenv("GMAIL_CLIENT_ID"), os.Getenv("GMAIL_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
	}

	gmailOAuth := oauth.NewGmailOAuth(clientID, clientSecret, redirectURL, "", log)
	state := uuid.NewString()

	http.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		token, err := gmailOAuth.ExchangeCode(context.Background(), r.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		tokenJSON, err := gmailOAuth.TokenToJSON(token)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Printf("\nToken:\n%s\n\nRefresh Token: %s\n\n", tokenJSON, token.RefreshToken)

		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		os.Exit(0)
	})

	fmt.Printf("Open this URL in your browser:\n%s\n", gmailOAuth.GenerateAuthURL(state))

	if err := http.ListenAndServe(callbackAddr, nil); err != nil {
		log.Fatal("Callback server error", "error", err)
	}
}
