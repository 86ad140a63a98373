package campaign

// AttributeType names a secondary index from an attribute value to an
// investor email. Pay-in address attributes are written at address
// assignment; referral codes and KYC ids are registered by the processor.
type AttributeType string

const (
	AttributePayInBtcAddress AttributeType = "PayInBtcAddress"
	AttributePayInEthAddress AttributeType = "PayInEthAddress"
	AttributeReferralCode    AttributeType = "ReferralCode"
	AttributeKycID           AttributeType = "KycId"
)

// PayInAttributeFor maps a deposit currency to the address attribute used to
// resolve the owning investor.
func PayInAttributeFor(c Currency) (AttributeType, bool) {
	switch c {
	case CurrencyBTC:
		return AttributePayInBtcAddress, true
	case CurrencyETH:
		return AttributePayInEthAddress, true
	}
	return "", false
}
