package notifications

import (
	"fmt"

	"github.com/sharebridge/sharebridge-backend/pkg/db/models"
)

const signature = "\n\nThank you for using ShareBridge."

// PickupEmail tells the receiver their donation is ready and where to collect it.
func PickupEmail(receiver models.User, product models.Product, producer models.Producer) Email {
	body := fmt.Sprintf(
		"Hello %s,\n\nyour donation for %q is ready. You can pick it up at %s (%s).",
		receiver.DisplayName(), product.Name, producer.PickupAddress(), producer.CompanyName,
	)
	return Email{
		To:      receiver.Email,
		ToName:  receiver.DisplayName(),
		Subject: fmt.Sprintf("Your donation for %s is ready for pickup", product.Name),
		Body:    body + signature,
	}
}

// ThankYouEmail is sent once the product has been handed over.
func ThankYouEmail(receiver models.User, product models.Product) Email {
	body := fmt.Sprintf(
		"Hello %s,\n\nwe hope you enjoy %q. Thanks for letting us know the donation reached you.",
		receiver.DisplayName(), product.Name,
	)
	return Email{
		To:      receiver.Email,
		ToName:  receiver.DisplayName(),
		Subject: "Thank you for your donation pickup",
		Body:    body + signature,
	}
}

// CancellationEmail informs the receiver that their application was closed because
// the product was removed.
func CancellationEmail(receiver models.User, product models.Product) Email {
	body := fmt.Sprintf(
		"Hello %s,\n\nyour application for %q was cancelled because the product was removed by the producer.",
		receiver.DisplayName(), product.Name,
	)
	return Email{
		To:      receiver.Email,
		ToName:  receiver.DisplayName(),
		Subject: fmt.Sprintf("Your application for %s was cancelled", product.Name),
		Body:    body + signature,
	}
}
