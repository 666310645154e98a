package dao

import (
	"strconv"
	"strings"

	"github.com/vadim/impulsa-inbox/internal/domain/notification/entity"
)

const notificationColumns = `id, user_id, type, title, message, data, is_read, created_at, read_at`

// whereFilter renders the WHERE clause of a filter; placeholder renders the n-th (1-based) bind parameter
func whereFilter(f entity.Filter, placeholder func(n int) string) (string, []any) {
	args := []any{f.UserID}
	conds := []string{"user_id = " + placeholder(1)}

	if f.Type != nil {
		args = append(args, string(*f.Type))
		conds = append(conds, "type = "+placeholder(len(args)))
	}
	if f.IsRead != nil {
		args = append(args, *f.IsRead)
		conds = append(conds, "is_read = "+placeholder(len(args)))
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func questionPlaceholder(int) string { return "?" }
