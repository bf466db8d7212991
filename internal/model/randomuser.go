package model

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// FlexString 接受 JSON 字符串或数字，统一保存为文本（postcode 两种形式都会出现）
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var str string
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("flexstring: %w", err)
		}
		*s = FlexString(str)
	default:
		*s = FlexString(b)
	}
	return nil
}

// RandomUserResponse randomuser.me 响应信封
type RandomUserResponse struct {
	Results []RandomUser `json:"results"`
}

type RandomUser struct {
	Gender string `json:"gender"`
	Name   struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Location struct {
		Street struct {
			Number FlexString `json:"number"`
			Name   string     `json:"name"`
		} `json:"street"`
		City     string     `json:"city"`
		State    string     `json:"state"`
		Postcode FlexString `json:"postcode"`
	} `json:"location"`
	Email string `json:"email"`
	Login struct {
		Username string `json:"username"`
	} `json:"login"`
	Registered struct {
		Date string `json:"date"`
	} `json:"registered"`
	Phone   string `json:"phone"`
	Picture struct {
		Large string `json:"large"`
	} `json:"picture"`
}

// ToRecord 扁平化为 UserRecord，地址格式 "<number> <street>, <city>, <state>"
func (u *RandomUser) ToRecord(id uuid.UUID) *UserRecord {
	loc := u.Location
	return &UserRecord{
		ID:             id,
		FirstName:      u.Name.First,
		LastName:       u.Name.Last,
		Gender:         u.Gender,
		Address:        fmt.Sprintf("%s %s, %s, %s", loc.Street.Number, loc.Street.Name, loc.City, loc.State),
		PostCode:       string(loc.Postcode),
		Email:          u.Email,
		Username:       u.Login.Username,
		RegisteredDate: u.Registered.Date,
		Phone:          u.Phone,
		Picture:        u.Picture.Large,
	}
}
