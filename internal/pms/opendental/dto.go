package opendental

// patientDTO mirrors one element of the OpenDental
// /api/v1/patients/Simple response. Field names follow the API's
// capitalization exactly.
type patientDTO struct {
	PatNum        int64  `json:"PatNum"`
	LName         string `json:"LName"`
	FName         string `json:"FName"`
	Birthdate     string `json:"Birthdate"`
	HmPhone       string `json:"HmPhone"`
	WirelessPhone string `json:"WirelessPhone"`
	WkPhone       string `json:"WkPhone"`
	Email         string `json:"Email"`
	Address       string `json:"Address"`
	Address2      string `json:"Address2"`
	City          string `json:"City"`
	State         string `json:"State"`
	Zip           string `json:"Zip"`
	DateTStamp    string `json:"DateTStamp"`
}

// insuranceDTO mirrors one element of the
// /api/v1/familymodules/{patNum}/Insurance response.
type insuranceDTO struct {
	PatNum       int64  `json:"PatNum"`
	InsSubNum    int64  `json:"InsSubNum"`
	PatPlanNum   int64  `json:"PatPlanNum"`
	CarrierName  string `json:"CarrierName"`
	SubscriberID string `json:"SubscriberID"`
	PatID        string `json:"PatID"`
	Subscriber   string `json:"subscriber"`
	Relationship string `json:"Relationship"`
	GroupNum     string `json:"GroupNum"`
	Ordinal      int    `json:"Ordinal"`

	// IsPending arrives as the strings "true"/"false".
	IsPending string `json:"IsPending"`
}
