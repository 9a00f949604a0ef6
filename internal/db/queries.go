package db

import (
	"context"
)

const getCredentials = `
select service, email, updated_at from credentials
where service = ?
`

func (q *Queries) GetCredentials(ctx context.Context, service string) (Credential, error) {
	row := q.db.QueryRowContext(ctx, getCredentials, service)
	var i Credential
	err := row.Scan(
		&i.Service,
		&i.Email,
		&i.UpdatedAt,
	)
	return i, err
}

const setCredentials = `
insert into credentials (service, email, updated_at)
values (?, ?, ?)
on conflict (service) do update set
    email = excluded.email,
    updated_at = excluded.updated_at
`

type SetCredentialsParams struct {
	Service   string
	Email     string
	UpdatedAt int64
}

func (q *Queries) SetCredentials(ctx context.Context, arg SetCredentialsParams) error {
	_, err := q.db.ExecContext(ctx, setCredentials,
		arg.Service,
		arg.Email,
		arg.UpdatedAt,
	)
	return err
}

const recordLecture = `
insert into lectures (course, title, occurrence, first_seen)
values (?, ?, ?, ?)
on conflict (course, title, occurrence) do nothing
`

type RecordLectureParams struct {
	Course     string
	Title      string
	Occurrence int64
	FirstSeen  int64
}

// RecordLecture returns 1 when the lecture was not recorded before and 0
// otherwise.
func (q *Queries) RecordLecture(ctx context.Context, arg RecordLectureParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, recordLecture,
		arg.Course,
		arg.Title,
		arg.Occurrence,
		arg.FirstSeen,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getCourseLectures = `
select course, title, occurrence, first_seen from lectures
where course = ?
order by first_seen, title, occurrence
`

func (q *Queries) GetCourseLectures(ctx context.Context, course string) ([]Lecture, error) {
	rows, err := q.db.QueryContext(ctx, getCourseLectures, course)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Lecture
	for rows.Next() {
		var i Lecture
		if err := rows.Scan(&i.Course, &i.Title, &i.Occurrence, &i.FirstSeen); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
