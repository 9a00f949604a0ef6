package db

type Credential struct {
	Service   string
	Email     string
	UpdatedAt int64
}

type Lecture struct {
	Course     string
	Title      string
	Occurrence int64
	FirstSeen  int64
}
