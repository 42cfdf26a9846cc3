package mockapi

type flight struct {
	Number   string `json:"flight_number"`
	Airline  string `json:"airline"`
	From     string `json:"departure"`
	To       string `json:"destination"`
	FromCity string `json:"departure_city"`
	ToCity   string `json:"destination_city"`
	Departs  string `json:"departure_time"`
	Arrives  string `json:"arrival_time"`
	Price    int    `json:"price"`
	Status   string `json:"status"`
	Gate     string `json:"gate"`
}

type review struct {
	User    string `json:"user"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

var seedFlights = []flight{
	{"CA1234", "Air China", "PEK", "PVG", "Beijing", "Shanghai", "08:00", "10:30", 1280, "delayed", "A12"},
	{"MU5678", "China Eastern", "PEK", "SHA", "Beijing", "Shanghai", "09:15", "11:45", 1150, "on-time", "B08"},
	{"CZ9012", "China Southern", "PEK", "PVG", "Beijing", "Shanghai", "10:30", "13:00", 1320, "on-time", "C15"},
	{"HU3456", "Hainan Airlines", "PEK", "SHA", "Beijing", "Shanghai", "11:45", "14:15", 1080, "delayed", "D22"},
	{"FM7890", "Shanghai Airlines", "PEK", "PVG", "Beijing", "Shanghai", "13:00", "15:30", 1200, "on-time", "E05"},
	{"JD2345", "Capital Airlines", "PEK", "SHA", "Beijing", "Shanghai", "14:15", "16:45", 980, "on-time", "F18"},
	{"3U6789", "Sichuan Airlines", "PEK", "PVG", "Beijing", "Shanghai", "15:30", "18:00", 1100, "delayed", "G11"},
	{"ZH1234", "Shenzhen Airlines", "PEK", "SHA", "Beijing", "Shanghai", "16:45", "19:15", 1250, "on-time", "H09"},
}

var seedReviews = map[string][]review{
	"CA1234": {
		{User: "zhang", Rating: 4, Comment: "Smooth flight, slight delay at boarding."},
		{User: "li", Rating: 5},
	},
	"MU5678": {
		{User: "wang", Rating: 3, Comment: "Crowded cabin."},
	},
}

var seatRows = []int{1, 2, 3, 4, 5}

var seatLetters = []string{"A", "B", "C", "D"}

// Seats already taken on every flight at startup.
var seedTaken = map[string]bool{"1A": true, "1B": true, "2A": true, "2B": true, "3A": true}

func seatClass(row int) string {
	if row <= 2 {
		return "business"
	}
	return "economy"
}
