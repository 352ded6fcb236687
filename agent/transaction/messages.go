package transaction

import (
	"fmt"
	"strings"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
)

// Fixed user-facing messages. Failure texts never leak upstream errors,
// identifiers, or raw JSON.
const (
	MsgNoMatches = "Sorry, I couldn't find any matching products. Please try a different query."

	MsgSearchFailed = "Oops! Something went wrong while searching for products. Please try again in a moment."

	MsgSelectionNotFound = "I couldn't find that option in the latest results. Please pick a number from the list above, or start a new search."

	MsgSelectFailed = "Sorry, I couldn't select that item right now. Please try again in a moment."

	MsgNothingToConfirm = "There's nothing to confirm yet. Search for a product and select one first."
)

func formatCatalog(items []contractx.CatalogItem) string {
	var b strings.Builder
	b.WriteString("Here are some products I found:\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%d. **%s**\n", item.Index, item.Name)
		fmt.Fprintf(&b, "   - Price: %s %s\n", item.Price, item.Currency)
		fmt.Fprintf(&b, "   - Rating: %s\n", item.Rating)
		fmt.Fprintf(&b, "   - Provider: %s\n\n", item.ProviderName)
	}
	b.WriteString("Reply with the number of the item you'd like to select.")
	return b.String()
}

func formatSelected(itemName string) string {
	return fmt.Sprintf("You've selected **%s**. Would you like me to confirm the order?", itemName)
}

func formatConfirmed(itemName, orderID string) string {
	if orderID == "" {
		return fmt.Sprintf("Your order for **%s** has been confirmed!", itemName)
	}
	return fmt.Sprintf("Your order for **%s** has been confirmed! Order ID: %s", itemName, orderID)
}

func formatConfirmFailed(itemName string) string {
	return fmt.Sprintf("Sorry, I couldn't confirm the order for **%s**. Please try again in a moment.", itemName)
}
