package source

import "fmt"

// AsOfDate pins the reference date used in every CHRO question so answers
// from different sources describe the same point in time.
const AsOfDate = "February 23, 2025"

// CHROPrompt is the question sent to the conversational sources.
func CHROPrompt(company string) string {
	return fmt.Sprintf(
		"Provide the full name of the Chief Human Resources Officer (CHRO) of %s, based in India, as of %s. "+
			"Ensure the response pertains exclusively to %s and no other entity or region. "+
			"Respond with only the full name, nothing else. Also give the LinkedIn URL.",
		company, AsOfDate, company,
	)
}

// GroundedPrompt is the question sent to the search-grounded source. It asks
// for a labeled answer so the reply parses without a second model call.
func GroundedPrompt(company string) string {
	return fmt.Sprintf(
		"Who is the Chief Human Resource Officer (CHRO) of %s India? "+
			"Search for the most recent information. Respond in exactly this format and nothing else:\n"+
			"Name: <full name>\n"+
			"Title: <current title>\n"+
			"URL: <LinkedIn profile URL, or Not available>\n"+
			"Location: <city, or Not available>",
		company,
	)
}

// SearchQuery is the web search issued by the scraper source.
func SearchQuery(company string) string {
	return fmt.Sprintf("who is the CHRO of %s India linkedin", company)
}
