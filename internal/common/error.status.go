package common

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Status code dùng cho trigger bên ngoài (HTTP handler, CLI, scheduler)
const (
	StatusOK                  = 200 // Thành công
	StatusBadRequest          = 400 // Yêu cầu không hợp lệ
	StatusNotFound            = 404 // Không tìm thấy tài nguyên
	StatusConflict            = 409 // Xung đột dữ liệu
	StatusUnprocessable       = 422 // Dữ liệu không xử lý được
	StatusInternalServerError = 500 // Lỗi server
	StatusServiceUnavailable  = 503 // Dịch vụ không khả dụng
)

// ErrorCode định nghĩa mã lỗi chi tiết
type ErrorCode struct {
	Code        string // Mã lỗi (ví dụ: VAL_001)
	Category    string // Phân loại lỗi (ví dụ: Validation)
	SubCategory string // Phân loại con (ví dụ: Input)
	Description string // Mô tả chi tiết
}

// Định nghĩa các mã lỗi theo hệ thống phân cấp
var (
	// Validation Errors (VAL_xxx) — lỗi đầu vào, fail fast trước khi fetch
	ErrCodeValidationInput = ErrorCode{
		Code:        "VAL_001",
		Category:    "Validation",
		SubCategory: "Input",
		Description: "Lỗi dữ liệu đầu vào (khoảng ngày, location)",
	}

	ErrCodeValidationFormat = ErrorCode{
		Code:        "VAL_002",
		Category:    "Validation",
		SubCategory: "Format",
		Description: "Lỗi định dạng dữ liệu",
	}

	// Record Errors (REC_xxx) — bản ghi nguồn hỏng, chỉ cảnh báo
	ErrCodeMalformedRecord = ErrorCode{
		Code:        "REC_001",
		Category:    "Record",
		SubCategory: "Malformed",
		Description: "Bản ghi nguồn không parse được thành ticket/line",
	}

	// Database Errors (DB_xxx)
	ErrCodeDatabase = ErrorCode{
		Code:        "DB",
		Category:    "Database",
		SubCategory: "General",
		Description: "Lỗi cơ sở dữ liệu chung",
	}

	ErrCodeDatabaseConnection = ErrorCode{
		Code:        "DB_001",
		Category:    "Database",
		SubCategory: "Connection",
		Description: "Lỗi kết nối cơ sở dữ liệu",
	}

	ErrCodeDatabaseQuery = ErrorCode{
		Code:        "DB_002",
		Category:    "Database",
		SubCategory: "Query",
		Description: "Lỗi truy vấn dữ liệu",
	}

	ErrCodeDatabaseWrite = ErrorCode{
		Code:        "DB_003",
		Category:    "Database",
		SubCategory: "Write",
		Description: "Lỗi ghi aggregate (upsert)",
	}

	// Business Logic Errors (BIZ_xxx)
	ErrCodeBusinessState = ErrorCode{
		Code:        "BIZ_001",
		Category:    "Business",
		SubCategory: "State",
		Description: "Lỗi trạng thái nghiệp vụ",
	}
)

// Error định nghĩa cấu trúc lỗi chi tiết
type Error struct {
	Code       ErrorCode // Mã lỗi chi tiết
	Message    string    // Thông báo lỗi
	StatusCode int       // Status code cho trigger
	Details    any       // Thông tin chi tiết thêm về lỗi
}

// Error trả về message của lỗi
func (e *Error) Error() string {
	return e.Message
}

// Is so khớp theo mã lỗi, để errors.Is(err, ErrInvalidInput) đúng với mọi lỗi input
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code.Code == t.Code.Code
}

// Unwrap trả về lỗi gốc khi Details là error
func (e *Error) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// NewError tạo một error mới với đầy đủ thông tin
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// NewInputError tạo lỗi đầu vào cụ thể (errors.Is(err, ErrInvalidInput) == true)
func NewInputError(format string, args ...any) error {
	return NewError(ErrCodeValidationInput, fmt.Sprintf(format, args...), StatusBadRequest, nil)
}

// Custom errors
var (
	ErrInvalidInput    = NewError(ErrCodeValidationInput, "Dữ liệu đầu vào không hợp lệ", StatusBadRequest, nil)
	ErrInvalidFormat   = NewError(ErrCodeValidationFormat, "Định dạng dữ liệu không hợp lệ", StatusBadRequest, nil)
	ErrMalformedRecord = NewError(ErrCodeMalformedRecord, "Bản ghi nguồn không hợp lệ", StatusUnprocessable, nil)
	ErrNotFound        = NewError(ErrCodeDatabaseQuery, "Không tìm thấy dữ liệu", StatusNotFound, nil)
	ErrPersistence     = NewError(ErrCodeDatabaseWrite, "Lỗi ghi aggregate", StatusInternalServerError, nil)
	ErrRunInProgress   = NewError(ErrCodeBusinessState, "Đang có một lần aggregate khác cho cùng phạm vi", StatusConflict, nil)

	ErrMongoConnection = NewError(ErrCodeDatabaseConnection, "Lỗi kết nối MongoDB", StatusServiceUnavailable, nil)
	ErrMongoNetwork    = NewError(ErrCodeDatabaseConnection, "Lỗi mạng khi kết nối MongoDB", StatusServiceUnavailable, nil)
	ErrMongoTimeout    = NewError(ErrCodeDatabaseConnection, "Kết nối MongoDB bị timeout", StatusServiceUnavailable, nil)
	ErrMongoQuery      = NewError(ErrCodeDatabaseQuery, "Lỗi truy vấn MongoDB", StatusInternalServerError, nil)
	ErrMongoWrite      = NewError(ErrCodeDatabaseWrite, "Lỗi ghi dữ liệu MongoDB", StatusInternalServerError, nil)
	ErrMongoDuplicate  = NewError(ErrCodeDatabaseWrite, "Dữ liệu trùng lặp trong MongoDB", StatusConflict, nil)
	ErrMongoSystem     = NewError(ErrCodeDatabase, "Lỗi hệ thống MongoDB", StatusInternalServerError, nil)
)

// PersistenceError lỗi ghi aggregate, mang theo số key đã ghi thành công trước khi lỗi.
// Caller có thể chạy lại toàn bộ khoảng ngày (upsert idempotent).
type PersistenceError struct {
	Written int   // Số aggregate đã upsert thành công
	Err     error // Lỗi gốc (đã qua ConvertMongoError)
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ghi aggregate thất bại sau %d bản ghi: %v", e.Written, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is cho phép errors.Is(err, ErrPersistence)
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// ConvertMongoError chuyển đổi lỗi MongoDB sang lỗi hệ thống
func ConvertMongoError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}

	// Kiểm tra các lỗi MongoDB cụ thể
	if mongo.IsDuplicateKeyError(err) {
		return NewError(ErrCodeDatabaseWrite, ErrMongoDuplicate.Error(), StatusConflict, err)
	}
	if mongo.IsTimeout(err) {
		return NewError(ErrCodeDatabaseConnection, ErrMongoTimeout.Error(), StatusServiceUnavailable, err)
	}
	if mongo.IsNetworkError(err) {
		return NewError(ErrCodeDatabaseConnection, ErrMongoNetwork.Error(), StatusServiceUnavailable, err)
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		return NewError(ErrCodeDatabaseWrite, ErrMongoWrite.Error(), StatusInternalServerError, err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch {
		case cmdErr.Code >= 100 && cmdErr.Code < 200:
			return NewError(ErrCodeDatabaseConnection, ErrMongoConnection.Error(), StatusServiceUnavailable, err)
		case cmdErr.Code >= 300 && cmdErr.Code < 400:
			return NewError(ErrCodeDatabaseQuery, ErrMongoQuery.Error(), StatusInternalServerError, err)
		case cmdErr.Code >= 400 && cmdErr.Code < 500:
			return NewError(ErrCodeDatabaseWrite, ErrMongoWrite.Error(), StatusInternalServerError, err)
		}
	}

	// Nếu không tìm thấy lỗi cụ thể, trả về lỗi hệ thống chung
	return NewError(ErrCodeDatabase, ErrMongoSystem.Error(), StatusInternalServerError, err)
}
