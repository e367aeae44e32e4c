package receipt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

var (
	ErrMissingKey = errors.New("s3Key is required")
	ErrForeignKey = errors.New("s3Key is not one of your receipts")
	ErrNoAnalyzer = errors.New("receipt parsing not configured")
)

const unknownVendor = "Unknown Store"

// ExpenseAnalyzer is the part of textract.Client used here.
type ExpenseAnalyzer interface {
	AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error)
}

// Item is one purchased line read off a receipt.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Parse runs expense analysis on an uploaded receipt and returns its line
// items. The key must sit under the caller's own receipts prefix.
func (s *Service) Parse(ctx context.Context, userID, s3Key string) ([]Item, error) {
	if s.analyzer == nil {
		return nil, ErrNoAnalyzer
	}
	s3Key = strings.TrimSpace(s3Key)
	if s3Key == "" {
		return nil, ErrMissingKey
	}
	if !strings.HasPrefix(s3Key, "receipts/"+userID+"/") || strings.Contains(s3Key, "..") {
		return nil, ErrForeignKey
	}

	out, err := s.analyzer.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(s.bucket),
				Name:   aws.String(s3Key),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze receipt %s: %w", s3Key, err)
	}
	return Items(out.ExpenseDocuments), nil
}

// Items flattens the line items of docs. Lines without a name are dropped;
// a missing quantity counts as 1 and an unreadable price as 0. When no line
// item is found, each document with a positive total yields one summary item
// named after the vendor.
func Items(docs []types.ExpenseDocument) []Item {
	var items []Item
	for _, doc := range docs {
		for _, group := range doc.LineItemGroups {
			for _, line := range group.LineItems {
				item := Item{Quantity: 1}
				for _, f := range line.LineItemExpenseFields {
					value := fieldValue(f)
					switch fieldType(f) {
					case "ITEM":
						item.Name = strings.TrimSpace(value)
					case "PRICE":
						item.Price = parsePrice(value)
					case "QUANTITY":
						if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
							item.Quantity = n
						}
					}
				}
				if item.Name != "" {
					items = append(items, item)
				}
			}
		}
	}
	if len(items) > 0 {
		return items
	}

	for _, doc := range docs {
		var total float64
		vendor := unknownVendor
		for _, f := range doc.SummaryFields {
			switch fieldType(f) {
			case "TOTAL":
				total = parsePrice(fieldValue(f))
			case "VENDOR_NAME":
				vendor = fieldValue(f)
			}
		}
		if total > 0 {
			items = append(items, Item{Name: "Purchase from " + vendor, Quantity: 1, Price: total})
		}
	}
	return items
}

func fieldType(f types.ExpenseField) string {
	if f.Type == nil {
		return ""
	}
	return aws.ToString(f.Type.Text)
}

func fieldValue(f types.ExpenseField) string {
	if f.ValueDetection == nil {
		return ""
	}
	return aws.ToString(f.ValueDetection.Text)
}

func parsePrice(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
