package review

import (
	"fmt"
)

const (
	KeywordLogout  = "-l"
	KeywordHelp    = "-h"
	KeywordPolicy  = "-p"
	KeywordDetails = "-d"
	KeywordReview  = "-r"

	KeywordReport = "report"
	KeywordCancel = "cancel"
	KeywordSkip   = "skip"
)

const policyText = `Doxxing policy:
- Never post government identification (e.g. social security numbers) or financial information (e.g. bank account or credit card numbers). Such posts are always removed and the account is suspended.
- Do not post another person's phone number, email address, home address, employer or other identifying details without their consent.
- Sharing your own details, or details shared in clear good faith by someone who knows the person, or public business contact information, is allowed.
- Repeated violations lead to a warning, then a suspension, then a permanent ban.`

const invalidBinary = "Invalid input. Please type 1 for Yes or 2 for No."

func menuText(intro string) string {
	reply := intro
	reply += "At any time, you may do the following:\n"
	reply += fmt.Sprintf("- Type `%s` to see a help message.\n", KeywordHelp)
	reply += fmt.Sprintf("- Type `%s` to log out of the review bot. This will cancel any in-progress reviews.\n", KeywordLogout)
	reply += fmt.Sprintf("- Type `%s [Evaluation ID]` to review a bot's doxxing evaluation.\n", KeywordDetails)
	reply += fmt.Sprintf("- Type `%s` to read our doxxing policy.\n", KeywordPolicy)
	reply += fmt.Sprintf("To begin a review, type `%s`\n", KeywordReview)
	return reply
}

func helpText() string {
	return menuText("You are logged in to the review bot. ")
}

func menuReminder() string {
	return fmt.Sprintf("Please type one of the following: `%s`, `%s`, `%s [Evaluation ID]`, `%s`, or `%s`", KeywordHelp, KeywordLogout, KeywordDetails, KeywordPolicy, KeywordReview)
}

func emptyQueueText() string {
	reply := "All reports have been reviewed or are currently under review.\n"
	reply += fmt.Sprintf("You may attempt to review a report by typing `%s`. We recommend logging out using `%s` and checking back again later instead of immediately attempting again.", KeywordReview, KeywordLogout)
	return reply
}

const threatPrompt = "Does the post in question contain a threat?\n1. Yes, this post contains a threat.\n2. No, this post does not contain a threat."

func abusePrompt(label string) string {
	return fmt.Sprintf("This message was flagged for %s.\nDoes the post in question meet that criteria?\n1. Yes, this post contains %s.\n2. No, this post does not contain %s.", label, label, label)
}

const disallowedInfoPrompt = "Our platform never allows government identification information (e.g. social security numbers) or financial information (e.g. bank account numbers, credit card numbers) to be posted.\n\nDoes the post contain any of the expressly disallowed information listed above?\n1. Yes, it does.\n2. No, it does not."

const contentCheckPrompt = "Does it contain other personally identifiable information (phone, email, location, employer)?\n1. Yes\n2. No"

const faithPrompt = `Was this post:
- Shared by the potentially targeted individual AND exhibits clear good faith
- Shared by someone who knows the potentially targeted individual AND exhibits clear good faith
- Shared to publicize a business or organization
If you are unsure, follow the message link to view the message in context before returning to this review.
1. Yes, meets at least one of the above criteria.
2. No, the post does not meet any of the above criteria.`

const nameCapturePrompt = "There is no victim name attached to this report. Please type the full name of the person being doxxed so the incident is accurately stored. If you cannot tell the real name of the victim, type `Unknown`"

const nameRetypePrompt = "Please type the name of the person being doxxed below:"

func nameConfirmPrompt(name string) string {
	return fmt.Sprintf("The victim name on file is `%s`. Please confirm that this is the correct name.\n1. This name is correct.\n2. This name is incorrect.", name)
}

const confirmInvalid = "Invalid input. Please type 1 to Confirm or 2 to Cancel."
