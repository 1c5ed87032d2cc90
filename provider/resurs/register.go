package resurs

import "github.com/mstgnz/signpay/provider"

func init() {
	provider.Register(providerName, NewProvider)
}
