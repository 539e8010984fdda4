package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

var (
	baseURL  = getEnv("SMOKE_BASE_URL", "http://localhost:3000")
	email    = getEnv("SMOKE_EMAIL", "smoke@example.com")
	password = getEnv("SMOKE_PASSWORD", "password123")
	question = getEnv("SMOKE_QUESTION", "What services does the company offer?")
)

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout, streams can take a while
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

// streamLine mirrors the NDJSON lines the stream endpoint emits.
type streamLine struct {
	Type      string   `json:"type"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	FollowUps []string `json:"follow_ups"`
	MessageId string   `json:"message_id"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
}

// consumeStream reads the NDJSON response line by line and prints answer
// tokens as they arrive. Returns the persisted assistant message ID.
func consumeStream(url, token string, body interface{}) (string, error) {
	jsonBody, _ := json.Marshal(body)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{} // No timeout
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("stream status %s: %s", resp.Status, string(snippet))
	}

	var messageID string
	printed := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var line streamLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return "", fmt.Errorf("bad stream line %q: %w", string(raw), err)
		}

		switch line.Type {
		case "delta":
			// Each delta carries the full answer so far, print only the new tail.
			if len(line.Answer) > printed {
				fmt.Print(line.Answer[printed:])
				printed = len(line.Answer)
			}
		case "done":
			fmt.Println()
			color.Green("Done. message_id=%s title=%q", line.MessageId, line.Title)
			messageID = line.MessageId
		case "error":
			fmt.Println()
			return "", fmt.Errorf("stream error: %s", line.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if messageID == "" {
		return "", fmt.Errorf("stream ended without a done line")
	}
	return messageID, nil
}

func main() {
	color.Cyan("🚀 ComAI Chat Backend Smoke Test\n")
	apiURL := baseURL + "/api"

	// 1. Health
	color.Yellow("\n1. Health Check")
	resp, body, err := sendRequest("GET", baseURL+"/health", "", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var healthResp map[string]interface{}
	json.Unmarshal(body, &healthResp)
	prettyPrint(healthResp)

	// 2. Login
	color.Yellow("\n2. Login as %s", email)
	resp, body, err = sendRequest("POST", apiURL+"/auth/v1/login", "", map[string]interface{}{
		"email":    email,
		"password": password,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	var loginResp map[string]interface{}
	json.Unmarshal(body, &loginResp)
	var token string
	if data, ok := loginResp["data"].(map[string]interface{}); ok {
		if t, ok := data["access_token"].(string); ok {
			token = t
		}
	}
	if token == "" {
		color.Red("No access token in login response")
		prettyPrint(loginResp)
		os.Exit(1)
	}

	// 3. Create Conversation
	color.Yellow("\n3. Create Conversation")
	resp, body, err = sendRequest("POST", apiURL+"/conversation/v1", token, map[string]interface{}{})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	var createResp map[string]interface{}
	json.Unmarshal(body, &createResp)
	var conversationID string
	if data, ok := createResp["data"].(map[string]interface{}); ok {
		if id, ok := data["id"].(string); ok {
			conversationID = id
			fmt.Printf("Created Conversation ID: %s\n", conversationID)
		}
	}
	if conversationID == "" {
		color.Red("No conversation ID returned")
		prettyPrint(createResp)
		os.Exit(1)
	}

	// 4. Stream a Chat Exchange
	color.Yellow("\n4. Stream: %q", question)
	messageID, err := consumeStream(apiURL+"/chat/v1/stream", token, map[string]interface{}{
		"conversation_id": conversationID,
		"question":        question,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	// 5. Submit Feedback on the streamed answer
	color.Yellow("\n5. Submit Feedback (positive)")
	resp, body, err = sendRequest("POST", apiURL+"/chat/v1/feedback", token, map[string]interface{}{
		"conversation_id": conversationID,
		"message_id":      messageID,
		"positive":        true,
	})
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
		var feedbackResp map[string]interface{}
		json.Unmarshal(body, &feedbackResp)
		prettyPrint(feedbackResp)
	}

	// 6. Cleanup (Delete the conversation)
	color.Yellow("\n6. Cleanup: Delete Conversation")
	resp, body, err = sendRequest("DELETE", apiURL+"/conversation/v1/"+conversationID, token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
		var deleteResp map[string]interface{}
		json.Unmarshal(body, &deleteResp)
		prettyPrint(deleteResp)
	}

	color.Cyan("\n✅ Smoke Test Complete")
}
