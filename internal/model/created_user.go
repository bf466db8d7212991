package model

import "github.com/gocql/gocql"

// UserMessage topic 上的消息体；ID 保持文本，由宽表写入方自行解析
type UserMessage struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	PostCode       string `json:"post_code"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	RegisteredDate string `json:"registered_date"`
	Phone          string `json:"phone"`
	Picture        string `json:"picture"`
}

// CreatedUserRow 宽表行，按 ID upsert
type CreatedUserRow struct {
	ID             gocql.UUID
	FirstName      string
	LastName       string
	Gender         string
	Address        string
	PostCode       string
	Email          string
	Username       string
	RegisteredDate string
	Phone          string
	Picture        string
}

// NewCreatedUserRow 解析消息里的文本 ID；解析失败时生成新的随机 ID 并返回 regenerated=true，
// 此时宽表与关系库的 ID 不再一致。
func NewCreatedUserRow(msg *UserMessage) (row CreatedUserRow, regenerated bool, err error) {
	id, perr := gocql.ParseUUID(msg.ID)
	if perr != nil {
		id, err = gocql.RandomUUID()
		if err != nil {
			return CreatedUserRow{}, false, err
		}
		regenerated = true
	}
	return CreatedUserRow{
		ID:             id,
		FirstName:      msg.FirstName,
		LastName:       msg.LastName,
		Gender:         msg.Gender,
		Address:        msg.Address,
		PostCode:       msg.PostCode,
		Email:          msg.Email,
		Username:       msg.Username,
		RegisteredDate: msg.RegisteredDate,
		Phone:          msg.Phone,
		Picture:        msg.Picture,
	}, regenerated, nil
}

// Values 按列顺序返回绑定参数
func (r CreatedUserRow) Values() []any {
	return []any{
		r.ID, r.FirstName, r.LastName, r.Gender, r.Address, r.PostCode,
		r.Email, r.Username, r.RegisteredDate, r.Phone, r.Picture,
	}
}

// CreatedUserColumns 与 Values 顺序一致
var CreatedUserColumns = []string{
	"id", "first_name", "last_name", "gender", "address", "post_code",
	"email", "username", "registered_date", "phone", "picture",
}
