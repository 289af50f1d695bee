package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication (401) ──────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrInvalidSignature   ErrCode = "INVALID_SIGNATURE"

	// ─── Authorization (403) ───────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAccountInactive ErrCode = "ACCOUNT_INACTIVE"
	ErrQuotaExceeded   ErrCode = "QUOTA_EXCEEDED"

	// ─── Resources (404) ───────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrInvalidExamToken ErrCode = "INVALID_EXAM_TOKEN"
	ErrSessionNotFound  ErrCode = "SESSION_NOT_FOUND"

	// ─── Validation (400) ──────────────────────────────────────────────
	ErrValidation         ErrCode = "VALIDATION_ERROR"
	ErrQuestionsNotOwned  ErrCode = "QUESTIONS_NOT_OWNED"
	ErrSessionNotActive   ErrCode = "SESSION_NOT_ACTIVE"
	ErrExamNotActive      ErrCode = "EXAM_NOT_ACTIVE"
	ErrInvalidAnswerShape ErrCode = "INVALID_ANSWER_SHAPE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Upstream / Server ─────────────────────────────────────────────
	ErrPaymentGateway ErrCode = "PAYMENT_GATEWAY_ERROR"
	ErrInternal       ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email atau kata sandi salah."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid atau telah kedaluwarsa."
	case ErrInvalidSignature:
		return "Tanda tangan notifikasi pembayaran tidak valid."

	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrAccountInactive:
		return "Akun Anda belum aktif. Silakan tunggu persetujuan administrator."
	case ErrQuotaExceeded:
		return "Kuota soal Anda sudah habis. Silakan tingkatkan langganan Anda."

	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrInvalidExamToken:
		return "Token ujian tidak valid."
	case ErrSessionNotFound:
		return "Sesi ujian tidak ditemukan."

	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrQuestionsNotOwned:
		return "Beberapa soal tidak ditemukan atau bukan milik Anda."
	case ErrSessionNotActive:
		return "Sesi ujian sudah selesai."
	case ErrExamNotActive:
		return "Ujian ini tidak aktif."
	case ErrInvalidAnswerShape:
		return "Format kunci jawaban tidak sesuai dengan jenis soal."

	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	case ErrPaymentGateway:
		return "Layanan pembayaran sedang tidak tersedia. Silakan coba lagi nanti."
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
