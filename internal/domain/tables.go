package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOpr{},
	&SysOprLog{},
	// Accounts
	&User{},
	&OtpCode{},
	// Marketplace
	&Business{},
	&BizService{},
	&Offer{},
	&Purchase{},
}
