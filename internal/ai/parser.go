package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"budget/internal/core"
)

// Parser extracts structured budget data from receipts, SMS, and email via a
// chat model. Model replies use a tagged line format that is parsed with
// regular expressions, so a chatty reply still yields usable fields.
type Parser struct {
	client *openai.Client
	model  string
}

// NewParser builds a parser against the OpenAI API or any compatible
// endpoint when baseURL is set.
func NewParser(apiKey, baseURL, model string) *Parser {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	}
	return &Parser{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// ReceiptResult is the outcome of scanning a receipt image.
type ReceiptResult struct {
	Amount   core.Money `json:"amount"`
	Merchant string     `json:"merchant"`
	Date     core.Date  `json:"date"`
	Category string     `json:"category"`
}

// SMSResult is the outcome of parsing a banking SMS.
type SMSResult struct {
	IsTransaction bool                 `json:"isTransaction"`
	Kind          core.TransactionKind `json:"type,omitempty"`
	Amount        core.Money           `json:"amount,omitempty"`
	Merchant      string               `json:"merchant,omitempty"`
	Date          core.Date            `json:"date,omitempty"`
	IsUPI         bool                 `json:"isUPI,omitempty"`
	Category      string               `json:"category,omitempty"`
}

// EmailBillResult is the outcome of parsing an email for a credit card bill.
type EmailBillResult struct {
	IsBill   bool       `json:"isBill"`
	BillName string     `json:"billName,omitempty"`
	Amount   core.Money `json:"amount,omitempty"`
	DueDate  core.Date  `json:"dueDate,omitempty"`
}

const receiptPrompt = `Analyze this receipt image and extract:
1. Total amount
2. Merchant name
3. Date (in YYYY-MM-DD format, if not visible use today's date)
4. Category (choose from: Food, Transport, Shopping, Bills, Entertainment, Health, Other)

Respond in this exact format:
Amount: [number]
Merchant: [name]
Date: [YYYY-MM-DD]
Category: [category]`

const smsPromptFormat = `Parse this SMS and determine if it's a banking transaction.
SMS from %s: %s

If it's a transaction, respond in this format:
Type: [debit/credit]
Amount: [number]
Merchant: [name or N/A]
Date: [YYYY-MM-DD]
IsUPI: [yes/no]

If it's not a banking transaction, respond with: NOT_TRANSACTION`

const emailPromptFormat = `Parse this email and determine if it's a credit card bill.
Subject: %s
Body: %s

If it's a credit card bill, respond in this format:
BillName: [bank name + credit card]
Amount: [number]
DueDate: [YYYY-MM-DD]

If it's not a credit card bill, respond with: NOT_BILL`

// ScanReceipt sends a base64 receipt image to the vision model and extracts
// the transaction fields from its reply.
func (p *Parser) ScanReceipt(ctx context.Context, imageBase64 string) (ReceiptResult, error) {
	dataURL := imageBase64
	if !strings.HasPrefix(dataURL, "data:") {
		dataURL = "data:image/jpeg;base64," + imageBase64
	}

	reply, err := p.complete(ctx, []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are a receipt scanner. Extract transaction details from receipt images.",
		},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: receiptPrompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
				},
			},
		},
	})
	if err != nil {
		return ReceiptResult{}, fmt.Errorf("scan receipt: %w", err)
	}

	return extractReceipt(reply, time.Now()), nil
}

// ParseSMS classifies a banking SMS into a transaction, or reports that it is
// not one.
func (p *Parser) ParseSMS(ctx context.Context, sender, message string, received core.Date) (SMSResult, error) {
	reply, err := p.complete(ctx, []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are an SMS parser for banking transactions.",
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(smsPromptFormat, sender, message),
		},
	})
	if err != nil {
		return SMSResult{}, fmt.Errorf("parse sms: %w", err)
	}

	return extractSMS(reply, received), nil
}

// ParseEmail checks an email for a credit card bill statement.
func (p *Parser) ParseEmail(ctx context.Context, subject, body string) (EmailBillResult, error) {
	reply, err := p.complete(ctx, []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are an email parser for credit card bills.",
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(emailPromptFormat, subject, body),
		},
	})
	if err != nil {
		return EmailBillResult{}, fmt.Errorf("parse email: %w", err)
	}

	return extractEmail(reply, time.Now()), nil
}

// Insights asks the model for a short spending review of the month.
func (p *Parser) Insights(ctx context.Context, month core.Month, summary core.AnalyticsSummary) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Review my budget for %s.\n", month)
	fmt.Fprintf(&sb, "Income: %.2f\nExpenses: %.2f\nBalance: %.2f\n",
		float64(summary.TotalIncome.Cents)/100,
		float64(summary.TotalExpense.Cents)/100,
		float64(summary.Balance)/100)
	if len(summary.ByCategory) > 0 {
		sb.WriteString("Spending by category:\n")
		for name, amount := range summary.ByCategory {
			fmt.Fprintf(&sb, "- %s: %.2f\n", name, amount.Float())
		}
	}
	sb.WriteString("Give 3 short, actionable insights about this spending pattern.")

	reply, err := p.complete(ctx, []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are a personal finance advisor. Be concise and practical.",
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: sb.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate insights: %w", err)
	}
	return reply, nil
}

func (p *Parser) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices from model")
	}
	return resp.Choices[0].Message.Content, nil
}

var (
	amountRe   = regexp.MustCompile(`Amount:\s*([\d.,]+)`)
	merchantRe = regexp.MustCompile(`Merchant:\s*(.+)`)
	dateRe     = regexp.MustCompile(`Date:\s*(\d{4}-\d{2}-\d{2})`)
	categoryRe = regexp.MustCompile(`Category:\s*(.+)`)
	typeRe     = regexp.MustCompile(`(?i)Type:\s*(debit|credit)`)
	upiRe      = regexp.MustCompile(`(?i)IsUPI:\s*(yes|no)`)
	billNameRe = regexp.MustCompile(`BillName:\s*(.+)`)
	dueDateRe  = regexp.MustCompile(`DueDate:\s*(\d{4}-\d{2}-\d{2})`)
)

func extractReceipt(reply string, now time.Time) ReceiptResult {
	result := ReceiptResult{
		Merchant: "Unknown",
		Category: "Other",
		Date:     core.DateOf(now),
	}
	result.Amount = matchAmount(reply, amountRe)
	if m := merchantRe.FindStringSubmatch(reply); m != nil {
		result.Merchant = strings.TrimSpace(m[1])
	}
	if m := dateRe.FindStringSubmatch(reply); m != nil {
		if d, err := core.ParseDate(m[1]); err == nil {
			result.Date = d
		}
	}
	if m := categoryRe.FindStringSubmatch(reply); m != nil {
		result.Category = strings.TrimSpace(m[1])
	}
	return result
}

func extractSMS(reply string, received core.Date) SMSResult {
	if strings.Contains(reply, "NOT_TRANSACTION") {
		return SMSResult{IsTransaction: false}
	}

	result := SMSResult{
		IsTransaction: true,
		Kind:          core.Income,
		Merchant:      "Unknown",
		Date:          received,
		Category:      "Bills",
	}
	if m := typeRe.FindStringSubmatch(reply); m != nil && strings.EqualFold(m[1], "debit") {
		result.Kind = core.Expense
	}
	result.Amount = matchAmount(reply, amountRe)
	if m := merchantRe.FindStringSubmatch(reply); m != nil {
		result.Merchant = strings.TrimSpace(m[1])
	}
	if m := dateRe.FindStringSubmatch(reply); m != nil {
		if d, err := core.ParseDate(m[1]); err == nil {
			result.Date = d
		}
	}
	if m := upiRe.FindStringSubmatch(reply); m != nil {
		result.IsUPI = strings.EqualFold(m[1], "yes")
	}
	return result
}

func extractEmail(reply string, now time.Time) EmailBillResult {
	if strings.Contains(reply, "NOT_BILL") {
		return EmailBillResult{IsBill: false}
	}

	result := EmailBillResult{
		IsBill:   true,
		BillName: "Credit Card Bill",
		// A statement without a visible due date defaults to a week out.
		DueDate: core.DateOf(now.AddDate(0, 0, 7)),
	}
	if m := billNameRe.FindStringSubmatch(reply); m != nil {
		result.BillName = strings.TrimSpace(m[1])
	}
	result.Amount = matchAmount(reply, amountRe)
	if m := dueDateRe.FindStringSubmatch(reply); m != nil {
		if d, err := core.ParseDate(m[1]); err == nil {
			result.DueDate = d
		}
	}
	return result
}

func matchAmount(reply string, re *regexp.Regexp) core.Money {
	m := re.FindStringSubmatch(reply)
	if m == nil {
		return core.Money{}
	}
	amount, err := core.ParseAmount(m[1])
	if err != nil {
		return core.Money{}
	}
	return amount
}
