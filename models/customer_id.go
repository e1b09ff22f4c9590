package models

// CustomerAddress is the billing address attached to a payment customer.
type CustomerAddress struct {
	Country    string `json:"country"`
	PostalCode string `json:"postalCode,omitempty"`
}

// CustomerID is the decrypted payment provider customer record.
type CustomerID struct {
	CustomerID string          `json:"customerID"`
	Address    CustomerAddress `json:"address"`
}

// EncryptedCustomerID is the wire form of [CustomerID]. The address is
// serialised to JSON before encryption.
type EncryptedCustomerID struct {
	ID         string `json:"id,omitempty"`
	CustomerID string `json:"customerID"`
	Address    string `json:"address"`
	Meta       Meta   `json:"meta"`
}

func (c EncryptedCustomerID) DocumentID() string { return c.ID }
func (c EncryptedCustomerID) DocumentMeta() Meta { return c.Meta }
