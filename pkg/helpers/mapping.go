package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/prevently-api/pkg/mailer"
	mailtpl "github.com/oksasatya/prevently-api/pkg/mailer/templates"
)

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// MapTypeToUniversal routes a job addressed by email type ("welcome", ...) to the universal template.
func MapTypeToUniversal(job *mailer.EmailJob) {
	name := strings.ToLower(job.Template)
	for _, t := range mailtpl.Types {
		if name != t {
			continue
		}
		if job.Data == nil {
			job.Data = map[string]any{}
		}
		if v, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", v) == "" {
			job.Data["Type"] = name
		}
		job.Template = mailtpl.Universal
		return
	}
}
