package transport

import (
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
)

var spokenAddress = strings.NewReplacer(" at ", "@", " dot ", ".")

// AddressBook maps spoken recipient names to mail addresses.
type AddressBook struct {
	contacts map[string]string
}

func NewAddressBook(contacts map[string]string) *AddressBook {
	book := &AddressBook{contacts: make(map[string]string, len(contacts))}
	for name, address := range contacts {
		book.contacts[normalizeName(name)] = address
	}
	return book
}

// Resolve looks the recipient up by name. Anything else must parse as an
// address, spoken forms like "bob at example dot com" included.
func (b *AddressBook) Resolve(recipient string) (*mail.Address, error) {
	name := normalizeName(recipient)
	if name == "" {
		return nil, fmt.Errorf("%w: empty recipient", ErrUnknownRecipient)
	}
	if b != nil {
		if address, ok := b.contacts[name]; ok {
			addr, err := mail.ParseAddress(address)
			if err != nil {
				return nil, fmt.Errorf("contact %s has an invalid address: %w", name, err)
			}
			if addr.Name == "" {
				addr.Name = strings.TrimSpace(recipient)
			}
			return addr, nil
		}
	}
	addr, err := mail.ParseAddress(spokenAddress.Replace(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecipient, recipient)
	}
	return addr, nil
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
