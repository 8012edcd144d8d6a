package dto

// SearchRequest represents the incoming press search request body
// @Description Press-release search parameters for a funding round
type SearchRequest struct {
	// Company whose funding round is searched
	CompanyName string `json:"company_name" binding:"required" example:"Acme Robotics"`
	// Known investors, free text (comma separated)
	Investors string `json:"investors" example:"Acme Ventures, Beta Capital"`
	// Raise date, free text or spreadsheet serial
	RaiseDate string `json:"raise_date" example:"2024-03-15"`
}

// SearchResponse lists the relevant press URLs found for a company
// @Description Ordered, de-duplicated press-release URLs
type SearchResponse struct {
	// Company that was searched
	CompanyName string `json:"company_name" example:"Acme Robotics"`
	// Up to three press-release URLs
	URLs []string `json:"urls" example:"https://www.businesswire.com/news/home/acme-robotics-funding"`
	// Number of URLs returned
	Total int `json:"total" example:"1"`
}

// CreateRecordRequest is the body for creating a pending fundraise record
// @Description New fundraise record to enrich
type CreateRecordRequest struct {
	// Company name
	CompanyName string `json:"company_name" binding:"required" example:"Acme Robotics"`
	// Raise date, free text or spreadsheet serial
	RaiseDate string `json:"raise_date" example:"45366"`
	// Known amount, free text
	AmountRaised string `json:"amount_raised" example:"Not specified"`
	// Known investors, free text
	Investors string `json:"investors" example:"Acme Ventures"`
}

// ErrorResponse represents an error response
// @Description Error response returned when request fails
type ErrorResponse struct {
	// Error message describing what went wrong
	Error string `json:"error" example:"Key: 'SearchRequest.CompanyName' Error:Field validation for 'CompanyName' failed on the 'required' tag"`
}
