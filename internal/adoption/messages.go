package adoption

import (
	"fmt"
	"time"

	"github.com/dukerupert/adoptrack/internal/period"
)

const warningText = "Dear adopter, we noticed that your daily reports are not as detailed as they need to be. " +
	"Please take this more seriously, otherwise shelter volunteers will have to check on the animal's living conditions in person."

func createdText(name string, trialEnd time.Time) string {
	return fmt.Sprintf("%s, congratulations on adopting one of our pets! Your trial period runs until %s.",
		name, period.Format(trialEnd))
}

func extendedText(days int, trialEnd time.Time) string {
	return fmt.Sprintf("ATTENTION! Your trial period has been extended by %d days, until %s.",
		days, period.Format(trialEnd))
}
