package service

import "fmt"

func verificationEmailTemplate(name, verifyURL, appName string) (string, string) {
	subject := fmt.Sprintf("Verify your email for %s", appName)
	body := fmt.Sprintf(`Hi %s,

Thanks for joining %s! Please confirm your email address by clicking this link:
%s

This link expires in 24 hours.

If you didn't create an account, you can safely ignore this email.

Best,
The %s Team`, name, appName, verifyURL, appName)

	return subject, body
}

func welcomeEmailTemplate(name, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your email is verified and your account is active.

If you have questions, just reply to this email.

Best,
The %s Team`, name, appName)

	return subject, body
}
